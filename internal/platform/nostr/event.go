// Package nostr implements the signed-record codec used by the relay network:
// canonical hashing, Schnorr signatures, subscription filters and the relay
// wire frames. Records failing verification here are never surfaced upward.
package nostr

// Record kinds used by the zap board protocol.
const (
	KindProfile        = 0
	KindZapRequest     = 9734
	KindZapReceipt     = 9735
	KindWalletInfo     = 13194
	KindWalletRequest  = 23194
	KindWalletResponse = 23195
	KindBoardConfig    = 30078
)

// Tag is a single event tag, e.g. ["p", "<pubkey>"].
type Tag []string

// Event is a signed relay record.
type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      int    `json:"kind"`
	Tags      []Tag  `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// TagValue returns the value of the first tag with the given name, or "".
func (e *Event) TagValue(name string) string {
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1]
		}
	}
	return ""
}

// TagValues returns the trailing values of the first tag with the given name.
func (e *Event) TagValues(name string) []string {
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1:]
		}
	}
	return nil
}

// AppendTag adds a tag to the event.
func (e *Event) AppendTag(name string, values ...string) {
	e.Tags = append(e.Tags, append(Tag{name}, values...))
}
