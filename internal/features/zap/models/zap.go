package models

// ZapMessage is one verified paid message on a board.
type ZapMessage struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	DisplayName  string `json:"displayName,omitempty"`
	ZapAmount    int64  `json:"zapAmount"` // sats
	Timestamp    int64  `json:"timestamp"` // unix ms
	SenderPubkey string `json:"senderPubkey"`
}

// RankChange reports a message that entered or moved within the leaderboard.
type RankChange struct {
	ID   string `json:"id"`
	Rank int    `json:"rank"`
}
