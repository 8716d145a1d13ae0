package postgres

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates ULID-based IDs.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate generates a new ULID.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}

const (
	referenceAlphabet   = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	referenceRandLength = 5
)

// ReferenceGenerator builds human-readable entry references of the form
// PREFIX-<base36 milliseconds>-<5 random base36 chars>.
type ReferenceGenerator struct {
	now func() time.Time
}

// NewReferenceGenerator creates a new ReferenceGenerator.
func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{now: time.Now}
}

// Generate returns a new reference with the given prefix.
func (g *ReferenceGenerator) Generate(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('-')
	b.WriteString(strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36)))
	b.WriteByte('-')

	limit := big.NewInt(int64(len(referenceAlphabet)))
	for range referenceRandLength {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteByte(referenceAlphabet[n.Int64()])
	}

	return b.String()
}
