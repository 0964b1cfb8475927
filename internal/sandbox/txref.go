package sandbox

import (
	"fmt"
	"strings"
	"time"

	hashids "github.com/speps/go-hashids/v2"
)

// RefGenerator mints opaque, human-quotable transaction references used to
// correlate a session across initiation, provider and verification.
type RefGenerator struct {
	h *hashids.HashID
}

func NewRefGenerator(salt string) (*RefGenerator, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = 10
	data.Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("build ref generator: %w", err)
	}
	return &RefGenerator{h: h}, nil
}

func (g *RefGenerator) Generate(userID int64) (string, error) {
	tag, err := g.h.EncodeInt64([]int64{userID, time.Now().UnixNano()})
	if err != nil {
		return "", fmt.Errorf("encode transaction ref: %w", err)
	}
	return "BOI-" + strings.ToUpper(tag), nil
}
