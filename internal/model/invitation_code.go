package model

import (
	"time"

	"github.com/google/uuid"
)

// InvitationCode is a single-use token that admits one participant.
// Codes are provisioned by an admin and consumed exactly once, going from
// unused to used; they are never deleted by this system.
type InvitationCode struct {
	ID              uuid.UUID  `json:"id"`
	Code            string     `json:"code"`
	ParticipantName *string    `json:"participant_name,omitempty"`
	IsUsed          bool       `json:"is_used"`
	UsedAt          *time.Time `json:"used_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// RedeemRequest is the payload for redeeming an invitation code.
type RedeemRequest struct {
	Code            string `json:"code" binding:"required,min=4,max=50"`
	ParticipantName string `json:"participant_name" binding:"required,min=2,max=255"`
}

// RedeemResponse is returned after a successful redemption.
type RedeemResponse struct {
	Token   string      `json:"token"`
	Session TestSession `json:"session"`
}

// GenerateCodesRequest is the payload for batch code provisioning.
type GenerateCodesRequest struct {
	Count  int    `json:"count" binding:"required,min=1,max=500"`
	Prefix string `json:"prefix" binding:"omitempty,alphanum,max=10"`
}
