package usecase

import (
	"crypto/subtle"

	"groupbuy-backend/internal/domain"
)

// AccessProof is evidence that a caller may act on a service request.
// The set of proofs is closed: SessionProof and TokenProof.
type AccessProof interface {
	grants(r *domain.ServiceRequest) bool
}

// SessionProof comes from a signed-in user.
type SessionProof struct {
	UserID string
	Phone  string
}

func (p SessionProof) grants(r *domain.ServiceRequest) bool {
	if r.UserID != nil && p.UserID != "" && *r.UserID == p.UserID {
		return true
	}
	return p.Phone != "" && r.UserPhone == p.Phone
}

// TokenProof is the capability handed to an anonymous submitter.
type TokenProof struct {
	Token string
}

func (p TokenProof) grants(r *domain.ServiceRequest) bool {
	if r.AccessToken == nil || *r.AccessToken == "" || p.Token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*r.AccessToken), []byte(p.Token)) == 1
}

func authorize(r *domain.ServiceRequest, proofs []AccessProof) error {
	if len(proofs) == 0 {
		return ErrUnauthorized("sign in or provide the access token")
	}
	for _, p := range proofs {
		if p != nil && p.grants(r) {
			return nil
		}
	}
	return ErrForbidden("no access to this service request")
}
