package utils

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"lms/config"

	"github.com/google/uuid"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateCertificateNumber builds a globally unique, human-displayable
// certificate number: CERT-<unix millis>-<9 random base36 chars>. The
// timestamp gives rough ordering; the random suffix (seeded per call from a
// UUID) makes collisions negligible. The unique column on certificates is
// the backstop either way.
func GenerateCertificateNumber() string {
	seed := int64(uuid.New().ID())
	rng := rand.New(rand.NewSource(seed + time.Now().UnixNano()))

	var sb strings.Builder
	for i := 0; i < 9; i++ {
		sb.WriteByte(base36[rng.Intn(len(base36))])
	}
	return fmt.Sprintf("CERT-%d-%s", time.Now().UnixMilli(), sb.String())
}

// VerificationURL returns the public verification link embedded in the
// certificate QR code: {BaseURL}/verify/{certificateNumber}.
func VerificationURL(certificateNumber string) string {
	return fmt.Sprintf("%s/verify/%s", strings.TrimRight(config.AppConfig.BaseURL, "/"), certificateNumber)
}
