package rest

import (
	"errors"

	"github.com/lewtec/rotulador-studio/internal/domain"
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
