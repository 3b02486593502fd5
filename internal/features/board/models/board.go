package models

import (
	"fmt"
	"strings"
)

// DefaultMinZapAmount is applied when a board is created without an explicit
// minimum, e.g. through the npub flow.
const DefaultMinZapAmount = 10

// BoardConfig is the replaceable board-configuration record body. Exactly one
// authoritative config exists per board id at any time: the verified record
// with the greatest CreatedAt wins, older records are shadowed.
type BoardConfig struct {
	BoardID          string   `json:"boardId"`
	BoardName        string   `json:"boardName"`
	LightningAddress string   `json:"lightningAddress"`
	MinZapAmount     int64    `json:"minZapAmount"` // sats
	CreatorPubkey    string   `json:"creatorPubkey"`
	CreatedAt        int64    `json:"createdAt"` // unix ms
	IsExplorable     bool     `json:"isExplorable"`
	Relays           []string `json:"relays,omitempty"` // relay hints for payers
}

func (c *BoardConfig) Validate() error {
	if c.BoardID == "" {
		return fmt.Errorf("board id is required")
	}
	if strings.TrimSpace(c.BoardName) == "" {
		return fmt.Errorf("board name is required")
	}
	if !strings.Contains(c.LightningAddress, "@") {
		return fmt.Errorf("lightning address must look like name@domain")
	}
	if c.MinZapAmount <= 0 {
		return fmt.Errorf("minimum zap amount must be positive")
	}
	if len(c.CreatorPubkey) != 64 {
		return fmt.Errorf("creator pubkey must be a 32-byte hex key")
	}
	return nil
}

// BoardCreate is the creation input accepted by the API.
type BoardCreate struct {
	BoardName        string `json:"board_name" binding:"required"`
	LightningAddress string `json:"lightning_address" binding:"required"`
	MinZapAmount     int64  `json:"min_zap_amount" binding:"required,gt=0"`
	IsExplorable     bool   `json:"is_explorable"`
}

// StoredBoard is the creator-side directory entry kept in the local
// persistence port. The signing key stays local so the creator can republish
// the config; it is never part of the published record.
type StoredBoard struct {
	BoardID    string      `json:"boardId"`
	Config     BoardConfig `json:"config"`
	SigningKey string      `json:"signingKey,omitempty"`
	CreatedAt  int64       `json:"createdAt"` // unix ms
}
