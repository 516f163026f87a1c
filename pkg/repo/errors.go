package repo

import "errors"

// ErrNotFound is returned by Get-style lookups that find no live row.
var ErrNotFound = errors.New("repo: not found")
