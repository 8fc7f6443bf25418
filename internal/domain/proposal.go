package domain

import (
	"time"

	"github.com/google/uuid"
)

type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusApproved ProposalStatus = "approved"
	ProposalStatusRejected ProposalStatus = "rejected"
)

// Proposal is a gift card submitted for sale. Rate is the payout in minor units;
// CardAmount is the face value declared by the submitter.
type Proposal struct {
	ID              uuid.UUID
	SubmittedBy     uuid.UUID
	Name            string
	Code            string
	CardAmount      int64
	Rate            int64
	ImageURL        *string
	Status          ProposalStatus
	VerifierID      *uuid.UUID
	VerifiedAt      *time.Time
	RejectionReason *string
	TransactionID   *uuid.UUID
	CreatedAt       time.Time
}
