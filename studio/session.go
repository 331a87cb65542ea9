package studio

import (
	"errors"
	"image"
	"sync"

	"github.com/openclaw/qrgen/pngio"
)

var (
	// ErrNotGenerated is returned when transparency is toggled before the
	// first successful generation.
	ErrNotGenerated = errors.New("no code generated yet")
	// ErrNothingToSave is returned by Save and PNG when no code is shown.
	ErrNothingToSave = errors.New("nothing to save")
)

// SaveHook is called after a successful Save.
type SaveHook func(path string, res *Result)

// Session holds what one front end shows: the current text, the
// transparency toggle and the last generated code.
//
// The transparency toggle unlocks after the first successful generation and
// stays unlocked; saving is only possible while a code is shown.
type Session struct {
	gen *Generator

	mu          sync.RWMutex
	text        string
	transparent bool
	unlocked    bool
	current     *Result
	onSave      SaveHook
}

// NewSession returns an empty session backed by gen.
func NewSession(gen *Generator) *Session {
	return &Session{gen: gen}
}

// OnSave registers fn to be called after every successful Save.
func (s *Session) OnSave(fn SaveHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSave = fn
}

// SetText replaces the input text without generating.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
}

// Text returns the input text.
func (s *Session) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Transparent reports whether the transparency toggle is on.
func (s *Session) Transparent() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transparent
}

// Current returns the code being shown, or nil.
func (s *Session) Current() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Image returns the shown image, or nil.
func (s *Session) Image() *image.NRGBA {
	if res := s.Current(); res != nil {
		return res.Image
	}
	return nil
}

// CanSave reports whether a code is shown.
func (s *Session) CanSave() bool {
	return s.Current() != nil
}

// CanToggleTransparency reports whether a code has ever been generated.
func (s *Session) CanToggleTransparency() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unlocked
}

// Generate encodes the current text. With empty text nothing happens and
// both return values are nil. On error the previously shown code is kept.
func (s *Session) Generate() (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateLocked()
}

// SetTransparent flips the toggle and regenerates the shown code.
func (s *Session) SetTransparent(on bool) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.unlocked {
		return nil, ErrNotGenerated
	}
	s.transparent = on

	// Same text, same matrix: only the raster changes.
	if s.current != nil && s.current.Text() == s.text {
		res, err := s.gen.Render(s.current.Matrix, s.current.Scale, on)
		if err != nil {
			return nil, err
		}
		s.current = res
		return res, nil
	}
	return s.generateLocked()
}

func (s *Session) generateLocked() (*Result, error) {
	res, err := s.gen.Generate(s.text, s.transparent)
	if err != nil || res == nil {
		return nil, err
	}
	s.current = res
	s.unlocked = true
	return res, nil
}

// PNG returns the shown code as PNG bytes.
func (s *Session) PNG() ([]byte, error) {
	res := s.Current()
	if res == nil {
		return nil, ErrNothingToSave
	}
	return res.PNG()
}

// Save writes the shown code, exactly as displayed, to path. A failed write
// leaves the session unchanged so it can be retried.
func (s *Session) Save(path string) error {
	s.mu.RLock()
	res, hook := s.current, s.onSave
	s.mu.RUnlock()

	if res == nil {
		return ErrNothingToSave
	}
	if err := pngio.Save(path, res.Image); err != nil {
		return err
	}
	if hook != nil {
		hook(path, res)
	}
	return nil
}

// Clear empties the text and hides the code. The transparency toggle stays
// unlocked.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = ""
	s.current = nil
}
