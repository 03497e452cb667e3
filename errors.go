package hitomi

import (
	"errors"
	"fmt"

	"github.com/choko510/go-hitomi/internal/galleryindex"
	"github.com/choko510/go-hitomi/internal/idset"
)

// ErrStructural marks errors caused by remote artifacts not matching their
// expected format: a truncated index node, an out-of-bounds key length, or
// an empty shard configuration after a sync. Retrying the same request
// will not help; callers can re-sync or abort.
var ErrStructural = errors.New("unexpected remote format")

// InvalidValueError indicates a malformed input value.
type InvalidValueError struct {
	Target string
	// Expectation completes the sentence "<Target> must <Expectation>".
	// Empty means "be valid".
	Expectation string
}

func (e *InvalidValueError) Error() string {
	expectation := e.Expectation
	if expectation == "" {
		expectation = "be valid"
	}
	return fmt.Sprintf("%s must %s", e.Target, expectation)
}

// InvalidCallError indicates an API misuse, such as resolving an image URI
// before synchronizing the resolver. It is a programming error, not a
// retryable condition.
type InvalidCallError struct {
	Target      string
	Expectation string
}

func (e *InvalidCallError) Error() string {
	return fmt.Sprintf("%s must %s", e.Target, e.Expectation)
}

// DuplicatedElementError indicates an element that may appear only once.
type DuplicatedElementError struct {
	Target string
}

func (e *DuplicatedElementError) Error() string {
	return fmt.Sprintf("%s must not be duplicated", e.Target)
}

// LackOfElementError indicates a collection that unexpectedly had too few
// elements, such as an unreadable index root.
type LackOfElementError struct {
	Target string
}

func (e *LackOfElementError) Error() string {
	return fmt.Sprintf("%s must have more elements", e.Target)
}

// translateError maps internal package errors onto the public taxonomy.
// Transport rejections pass through untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, galleryindex.ErrIndexUnavailable) {
		return fmt.Errorf("%w: %w", ErrStructural, &LackOfElementError{Target: "galleriesIndex"})
	}
	if errors.Is(err, galleryindex.ErrTruncatedNode) || errors.Is(err, idset.ErrTruncatedPostings) {
		return fmt.Errorf("%w: %w", ErrStructural, err)
	}
	var keySize *galleryindex.KeySizeError
	if errors.As(err, &keySize) {
		return fmt.Errorf("%w: %w", ErrStructural, err)
	}

	return err
}
