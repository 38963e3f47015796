package syncer

import (
	"time"

	"github.com/cybercompass/compass/internal/syncclient"
)

// Pinger reports server reachability.
type Pinger interface {
	HealthCheck() (*syncclient.HealthResponse, error)
}

// WatchConnectivity polls the server and notifies the processor with
// TriggerOnline when reachability returns after an outage. Steady state in
// either direction is quiet; only the offline-to-online edge triggers a
// drain. Blocks until done is closed.
func WatchConnectivity(done <-chan struct{}, ping Pinger, p *Processor, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	online := true
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_, err := ping.HealthCheck()
			if err == nil && !online {
				p.Notify(TriggerOnline)
			}
			online = err == nil
		}
	}
}
