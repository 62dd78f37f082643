package depcache

import "errors"

var ErrStore = errors.New("dependency store error")
