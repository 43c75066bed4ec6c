package game

import (
	"slices"

	"github.com/talgya/chronocore/internal/scoremath"
)

// MaxHistory caps a player's rolling action history.
const MaxHistory = 20

// MaxKarmaDelta bounds any single karma change.
const MaxKarmaDelta = 10

// HistoryEntry is one categorized decision in a player's rolling history.
type HistoryEntry struct {
	Decision string `json:"decision"`
	Delta    int    `json:"delta"`
	Category string `json:"category"`
}

// Quest status values.
const (
	QuestActive    = "active"
	QuestCompleted = "completed"
)

// QuestRecord tracks a quest a player has taken on.
type QuestRecord struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Type          string   `json:"type"`
	Difficulty    int      `json:"difficulty"`
	Options       []Option `json:"options,omitempty"`
	Status        string   `json:"status"`
	Outcome       string   `json:"outcome,omitempty"`
	KarmaReward   int      `json:"karma_reward"`
	StartedTurn   int      `json:"started_turn"`
	ExpiresTurn   int      `json:"expires_turn"`
	CompletedTurn int      `json:"completed_turn,omitempty"`
}

// Player is a participant in one game.
type Player struct {
	ID          string         `json:"id"`
	Username    string         `json:"username"`
	Role        Role           `json:"role"`
	Karma       int            `json:"karma"`
	OwnedRealms []string       `json:"owned_realms"`
	History     []HistoryEntry `json:"history"`
	Quests      []QuestRecord  `json:"quests,omitempty"`
}

// Owns reports whether the player owns the realm.
func (p *Player) Owns(realmID string) bool {
	return slices.Contains(p.OwnedRealms, realmID)
}

// AddRealm adds a realm to the owned set, keeping it sorted and unique.
func (p *Player) AddRealm(realmID string) {
	if p.Owns(realmID) {
		return
	}
	p.OwnedRealms = append(p.OwnedRealms, realmID)
	slices.Sort(p.OwnedRealms)
}

// RemoveRealm drops a realm from the owned set.
func (p *Player) RemoveRealm(realmID string) {
	p.OwnedRealms = slices.DeleteFunc(p.OwnedRealms, func(id string) bool { return id == realmID })
}

// RecordAction appends to the rolling history, dropping the oldest entries
// beyond MaxHistory.
func (p *Player) RecordAction(e HistoryEntry) {
	p.History = append(p.History, e)
	if len(p.History) > MaxHistory {
		p.History = slices.Clone(p.History[len(p.History)-MaxHistory:])
	}
}

// Quest returns the quest record with the given id.
func (p *Player) Quest(questID string) (*QuestRecord, error) {
	for i := range p.Quests {
		if p.Quests[i].ID == questID {
			return &p.Quests[i], nil
		}
	}
	return nil, NotFound("quest", questID)
}

// StartQuest records a new active quest.
func (p *Player) StartQuest(q QuestRecord) {
	q.Status = QuestActive
	p.Quests = append(p.Quests, q)
}

// CompleteQuest marks an active quest completed and applies its karma
// reward, clamped to ±MaxKarmaDelta. It returns the applied reward.
func (p *Player) CompleteQuest(questID, outcome string, reward, turn int) (int, error) {
	q, err := p.Quest(questID)
	if err != nil {
		return 0, err
	}
	if q.Status != QuestActive {
		return 0, Invalid("quest", "quest %q is %s", questID, q.Status)
	}
	reward = scoremath.Clamp(reward, -MaxKarmaDelta, MaxKarmaDelta)
	q.Status = QuestCompleted
	q.Outcome = outcome
	q.KarmaReward = reward
	q.CompletedTurn = turn
	p.Karma += reward
	return reward, nil
}
