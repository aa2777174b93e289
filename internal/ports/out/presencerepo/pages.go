package presencerepo

import (
	"context"
	"errors"

	"github.com/bodyforce/admin-api/internal/domain"
)

// PageSize is the batch size used when a caller needs every matching scan.
const PageSize = 1000

// ErrStop can be returned by an Each callback to end iteration without error.
var ErrStop = errors.New("stop iteration")

// Each calls fn with successive pages of at most pageSize scans matching f,
// until a short page is returned.
func Each(ctx context.Context, repo Repository, f Filter, pageSize int, fn func([]domain.Presence) error) error {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	for offset := 0; ; offset += pageSize {
		page, err := repo.ListPage(ctx, f, offset, pageSize)
		if err != nil {
			return err
		}
		if len(page) > 0 {
			if err := fn(page); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
	}
}
