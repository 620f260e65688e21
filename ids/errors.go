package ids

import "github.com/cockroachdb/errors"

var errInvalidLength = errors.Newf("ids: decoded id must be %d bytes", Size)
