// Package encoder turns text into a QR symbol matrix.
//
// The symbol construction itself (mode selection, Reed-Solomon coding, mask
// choice) is delegated to github.com/skip2/go-qrcode. This package pins the
// error-correction policy, copies the resulting module grid into an immutable
// Matrix and classifies failures as *EncodingError.
package encoder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// QuietZone is the width, in modules, of the light border around every symbol.
const QuietZone = 4

// ErrTooLong reports text that does not fit in the largest QR version at the
// requested error-correction level.
var ErrTooLong = errors.New("text too long to encode")

// EncodingError is returned when text cannot be represented as a QR symbol.
type EncodingError struct {
	Length int   // input length in bytes
	Level  Level // level the encode was attempted at
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %d bytes at level %s: %v", e.Length, e.Level, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Encode builds the QR symbol for text at the given error-correction level.
// The same text and level always produce the same matrix. Text that exceeds
// the capacity of version 40 yields an *EncodingError wrapping ErrTooLong;
// the text is never truncated and the level is never lowered.
func Encode(text string, level Level) (*Matrix, error) {
	rl, ok := level.recoveryLevel()
	if !ok {
		return nil, &EncodingError{Length: len(text), Level: level, Err: fmt.Errorf("unknown level %d", int(level))}
	}

	q, err := qrcode.New(text, rl)
	if err != nil {
		return nil, &EncodingError{Length: len(text), Level: level, Err: classify(err)}
	}

	return newMatrix(q.Bitmap(), q.VersionNumber, level, text), nil
}

// Default encodes text with DefaultLevel.
func Default(text string) (*Matrix, error) {
	return Encode(text, DefaultLevel)
}

// classify maps skip2's capacity failure onto ErrTooLong. skip2 exports no
// sentinel for it, so the match is on its message text.
func classify(err error) error {
	if strings.Contains(err.Error(), "too long") {
		return ErrTooLong
	}
	return err
}
