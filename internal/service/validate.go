package service

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/iliyamo/rentals-marketplace/internal/storage"
)

var (
	reContact  = regexp.MustCompile(`^\d{10}$`)
	reIDNumber = regexp.MustCompile(`^\d{12}$`)
	reEmail    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	rePrice    = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

const (
	maxImages         = 3
	minPasswordLen    = 8
	maxIdempotencyKey = 128
	maxTextLen        = 255
)

func required(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid(field, "is required")
	}
	if len(v) > maxTextLen {
		return "", invalid(field, fmt.Sprintf("must be at most %d characters", maxTextLen))
	}
	return v, nil
}

// positiveInt parses a strictly positive integer such as a stock count.
func positiveInt(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, invalid(field, "must be a whole number")
	}
	if n <= 0 {
		return 0, invalid(field, "must be greater than 0")
	}
	return n, nil
}

// parsePriceCents parses a positive decimal amount with at most two
// fractional digits into cents.
func parsePriceCents(field, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if !rePrice.MatchString(raw) {
		return 0, invalid(field, "must be a positive amount")
	}
	whole, frac, _ := strings.Cut(raw, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w > math.MaxInt64/100-1 {
		return 0, invalid(field, "is too large")
	}
	cents := w * 100
	if frac != "" {
		if len(frac) == 1 {
			frac += "0"
		}
		f, _ := strconv.ParseInt(frac, 10, 64)
		cents += f
	}
	if cents <= 0 {
		return 0, invalid(field, "must be greater than 0")
	}
	return cents, nil
}

func contactNumber(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !reContact.MatchString(raw) {
		return "", invalid(field, "must be exactly 10 digits")
	}
	return raw, nil
}

// checkUpload rejects a missing or declared-oversize file before anything
// is written.
func checkUpload(field string, u *Upload, maxBytes int64) error {
	if u == nil || u.Content == nil {
		return invalid(field, "is required")
	}
	if maxBytes > 0 && u.Size > maxBytes {
		return invalid(field, fmt.Sprintf("must be at most %d MB", maxBytes>>20))
	}
	return nil
}

// storageError converts a file store rejection into a ValidationError.
// Other errors pass through unchanged.
func storageError(field string, err error) error {
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		return invalid(field, "unsupported file type")
	case errors.Is(err, storage.ErrTooLarge):
		return invalid(field, "file too large")
	}
	return err
}
