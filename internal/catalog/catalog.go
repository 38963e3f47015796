// Package catalog holds the built-in challenge set the client trains
// against. Challenges are read-only; progress against them lives in the
// local store and on the server.
package catalog

import (
	"fmt"
	"sort"

	"github.com/cybercompass/compass/internal/models"
)

var challenges = []models.Challenge{
	{
		ID:       "ch_catfish_01",
		Category: models.CategoryCatfishing,
		Title:    "The too-perfect stranger",
		Prompt: `A profile that matched with you yesterday already says you are
*"the only person who understands them"* and asks to move the conversation to
a private messaging app. Their photos look professionally shot and they claim
to work on an oil rig with poor connectivity.

**What is the strongest warning sign here?**`,
		Options: []models.ChallengeOption{
			{ID: "opt_a", Text: "They work far away", IsCorrect: false},
			{ID: "opt_b", Text: "Rushed intimacy combined with a quick move off-platform", IsCorrect: true},
			{ID: "opt_c", Text: "They use professional photos", IsCorrect: false},
		},
	},
	{
		ID:       "ch_catfish_02",
		Category: models.CategoryCatfishing,
		Title:    "The emergency transfer",
		Prompt: `After three weeks of daily chatting, your online acquaintance has a
sudden medical emergency and asks you to wire money, promising to pay it back
*"the moment I'm out"*. They have never video-called you.

**How should you respond?**`,
		Options: []models.ChallengeOption{
			{ID: "opt_a", Text: "Send a small amount first to test their honesty", IsCorrect: false},
			{ID: "opt_b", Text: "Ask them to video-call before deciding", IsCorrect: false},
			{ID: "opt_c", Text: "Refuse: money requests from unverified online contacts are a classic scam pattern", IsCorrect: true},
		},
	},
	{
		ID:       "ch_bully_01",
		Category: models.CategoryCyberbullying,
		Title:    "The group chat pile-on",
		Prompt: `A classmate's embarrassing photo is being passed around a group chat
with mocking captions, and people keep adding more.

**What is the most constructive first step?**`,
		Options: []models.ChallengeOption{
			{ID: "opt_a", Text: "Do not forward it, and report the content to the platform or a trusted adult", IsCorrect: true},
			{ID: "opt_b", Text: "Reply with a joke so the attention moves on", IsCorrect: false},
			{ID: "opt_c", Text: "Leave the chat silently", IsCorrect: false},
		},
	},
	{
		ID:       "ch_bully_02",
		Category: models.CategoryCyberbullying,
		Title:    "Anonymous accounts",
		Prompt: `Someone created an anonymous account that posts insulting comments
on everything you publish.

**Which response limits the harm best?**`,
		Options: []models.ChallengeOption{
			{ID: "opt_a", Text: "Answer every comment to defend yourself", IsCorrect: false},
			{ID: "opt_b", Text: "Document the abuse, block the account, and use the platform's reporting flow", IsCorrect: true},
			{ID: "opt_c", Text: "Make your own anonymous account to respond", IsCorrect: false},
		},
	},
	{
		ID:       "ch_deepfake_01",
		Category: models.CategoryDeepfakes,
		Title:    "The celebrity endorsement",
		Prompt: `A video shows a well-known public figure enthusiastically promoting a
crypto investment platform. The lip movements look slightly delayed and the
lighting on the face never changes, even when the head turns.

**What should you check first?**`,
		Options: []models.ChallengeOption{
			{ID: "opt_a", Text: "Whether reputable outlets or the person's official channels mention the endorsement", IsCorrect: true},
			{ID: "opt_b", Text: "How many views the video has", IsCorrect: false},
			{ID: "opt_c", Text: "Whether the comments are positive", IsCorrect: false},
		},
	},
	{
		ID:       "ch_deepfake_02",
		Category: models.CategoryDeepfakes,
		Title:    "The voice on the phone",
		Prompt: `You get a call that sounds exactly like a family member asking for an
urgent money transfer. The voice is right, but the request is unusual and the
caller discourages you from hanging up.

**What is the safest reaction?**`,
		Options: []models.ChallengeOption{
			{ID: "opt_a", Text: "Transfer a smaller amount than requested", IsCorrect: false},
			{ID: "opt_b", Text: "Hang up and call the family member back on their known number", IsCorrect: true},
			{ID: "opt_c", Text: "Ask the caller personal questions only family would know", IsCorrect: false},
		},
	},
	{
		ID:       "ch_disinfo_01",
		Category: models.CategoryDisinformation,
		Title:    "The outrage headline",
		Prompt: `An article with an alarming headline is spreading fast. The page has
no author byline, the domain imitates a known news brand with one letter
changed, and every paragraph ends with a share button.

**What best describes this situation?**`,
		Options: []models.ChallengeOption{
			{ID: "opt_a", Text: "A legitimate scoop that big media is suppressing", IsCorrect: false},
			{ID: "opt_b", Text: "An imposter site engineered for shares, a common disinformation tactic", IsCorrect: true},
			{ID: "opt_c", Text: "A harmless satire page", IsCorrect: false},
		},
	},
	{
		ID:       "ch_disinfo_02",
		Category: models.CategoryDisinformation,
		Title:    "The miracle statistic",
		Prompt: `A post claims *"97% of doctors"* support a product, linking to a chart
with no source, no axis labels, and a logo of an institute you cannot find
anywhere else.

**What is the right way to evaluate the claim?**`,
		Options: []models.ChallengeOption{
			{ID: "opt_a", Text: "Trust it, since a precise percentage implies a real study", IsCorrect: false},
			{ID: "opt_b", Text: "Look for the primary source and check whether the institute exists", IsCorrect: true},
			{ID: "opt_c", Text: "Check how often the post was shared", IsCorrect: false},
		},
	},
}

// All returns every challenge, ordered by ID.
func All() []models.Challenge {
	out := make([]models.Challenge, len(challenges))
	copy(out, challenges)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByCategory returns the challenges in the given category, ordered by ID.
func ByCategory(category string) []models.Challenge {
	var out []models.Challenge
	for _, c := range All() {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}

// Get returns the challenge with the given ID.
func Get(id string) (*models.Challenge, error) {
	for i := range challenges {
		if challenges[i].ID == id {
			c := challenges[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("unknown challenge: %s", id)
}

// Count returns the number of challenges in the catalog.
func Count() int {
	return len(challenges)
}
