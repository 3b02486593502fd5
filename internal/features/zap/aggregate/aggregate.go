package aggregate

import (
	"sort"

	"zapboard-backend/internal/features/zap/models"
)

// LeaderboardSize is how many top messages a board surfaces.
const LeaderboardSize = 3

// Aggregate accumulates the verified messages of one board session. It is not
// safe for concurrent use; each stream session owns exactly one.
type Aggregate struct {
	messages []*models.ZapMessage
	total    int64
}

func New() *Aggregate {
	return &Aggregate{}
}

func (a *Aggregate) Add(msg *models.ZapMessage) {
	a.messages = append(a.messages, msg)
	a.total += msg.ZapAmount
}

func (a *Aggregate) Count() int {
	return len(a.messages)
}

// TotalSats is the running sum over every admitted message.
func (a *Aggregate) TotalSats() int64 {
	return a.total
}

// Feed returns all messages newest-first.
func (a *Aggregate) Feed() []*models.ZapMessage {
	feed := make([]*models.ZapMessage, len(a.messages))
	copy(feed, a.messages)
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Timestamp > feed[j].Timestamp
	})
	return feed
}

// Leaderboard returns the top messages by amount. Ties go to the earlier
// message, so a later equal payment cannot displace an established entry.
func (a *Aggregate) Leaderboard() []*models.ZapMessage {
	top := make([]*models.ZapMessage, len(a.messages))
	copy(top, a.messages)
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].ZapAmount != top[j].ZapAmount {
			return top[i].ZapAmount > top[j].ZapAmount
		}
		return top[i].Timestamp < top[j].Timestamp
	})
	if len(top) > LeaderboardSize {
		top = top[:LeaderboardSize]
	}
	return top
}

// RankChanges reports the leaderboard entries that were absent from the
// previous top ids. An entry that merely shifted position is not an event.
func RankChanges(prevTopIDs []string, leaderboard []*models.ZapMessage) []models.RankChange {
	prev := make(map[string]struct{}, len(prevTopIDs))
	for _, id := range prevTopIDs {
		prev[id] = struct{}{}
	}

	var changes []models.RankChange
	for i, msg := range leaderboard {
		if _, ok := prev[msg.ID]; !ok {
			changes = append(changes, models.RankChange{ID: msg.ID, Rank: i + 1})
		}
	}
	return changes
}

// TopIDs extracts the ids of a leaderboard in rank order.
func TopIDs(leaderboard []*models.ZapMessage) []string {
	ids := make([]string, len(leaderboard))
	for i, msg := range leaderboard {
		ids[i] = msg.ID
	}
	return ids
}
