package receipt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/grizzlydb/LedgerDB/index"
)

var (
	ErrReceiptInvalid = errors.New("receipt invalid")

	// ErrProofMismatch means the receipt's signature checked out but its
	// embedded proof does not reproduce its embedded root hash.
	ErrProofMismatch = errors.New("receipt proof does not match root hash")
)

// Receipt attests that one commit is included in a timeline whose commit
// tree had the given root hash. A receipt carries everything needed to
// re-check the inclusion proof offline; the holder only has to compare
// RootHash against a root they trust.
type Receipt struct {
	CommitID  string
	Table     string
	Timestamp int64
	RootHash  string
	Proof     index.MerkleProof
}

// receiptClaims is the JWT layout of a receipt. Hashes travel as hex
// strings so the token stays portable across consumers.
type receiptClaims struct {
	jwt.RegisteredClaims
	CommitID    string   `json:"cid"`
	Table       string   `json:"tbl"`
	Timestamp   int64    `json:"cts"`
	RootHash    string   `json:"root"`
	TargetHash  string   `json:"target"`
	ProofHashes []string `json:"proof"`
	IsLeft      []bool   `json:"left"`
}

// Signer issues and verifies signed receipts with an HS256 shared secret.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewSigner creates a signer. A zero ttl issues receipts that never
// expire.
func NewSigner(secret []byte, issuer string, ttl time.Duration) *Signer {
	return &Signer{secret: secret, issuer: issuer, ttl: ttl}
}

// Sign wraps a receipt in a signed JWT.
func (s *Signer) Sign(r Receipt) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("no signing secret configured")
	}

	now := time.Now()
	claims := receiptClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
		CommitID:    r.CommitID,
		Table:       r.Table,
		Timestamp:   r.Timestamp,
		RootHash:    r.RootHash,
		TargetHash:  r.Proof.TargetHash.String(),
		ProofHashes: make([]string, 0, len(r.Proof.ProofHashes)),
		IsLeft:      r.Proof.IsLeft,
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}
	for _, h := range r.Proof.ProofHashes {
		claims.ProofHashes = append(claims.ProofHashes, h.String())
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks a token's signature and claims, then re-runs the
// embedded inclusion proof against the embedded root hash. The returned
// receipt is trustworthy up to that root; whether the root itself is
// trusted is the caller's decision.
func (s *Signer) Verify(tokenString string) (Receipt, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims receiptClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrReceiptInvalid, err)
	}
	if !token.Valid {
		return Receipt{}, ErrReceiptInvalid
	}

	r, err := claims.receipt()
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrReceiptInvalid, err)
	}

	root, err := index.ParseHash(r.RootHash)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrReceiptInvalid, err)
	}
	if !r.Proof.Verify(root) {
		return Receipt{}, ErrProofMismatch
	}

	return r, nil
}

func (c *receiptClaims) receipt() (Receipt, error) {
	target, err := index.ParseHash(c.TargetHash)
	if err != nil {
		return Receipt{}, err
	}

	hashes := make([]index.Hash, 0, len(c.ProofHashes))
	for _, s := range c.ProofHashes {
		h, err := index.ParseHash(s)
		if err != nil {
			return Receipt{}, err
		}
		hashes = append(hashes, h)
	}
	if len(hashes) != len(c.IsLeft) {
		return Receipt{}, errors.New("mismatched proof lengths")
	}

	return Receipt{
		CommitID:  c.CommitID,
		Table:     c.Table,
		Timestamp: c.Timestamp,
		RootHash:  c.RootHash,
		Proof: index.MerkleProof{
			TargetHash:  target,
			ProofHashes: hashes,
			IsLeft:      c.IsLeft,
		},
	}, nil
}
