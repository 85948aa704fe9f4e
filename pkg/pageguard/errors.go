package pageguard

import "errors"

var errModuleClosed = errors.New("pageguard: module is not initialized")
