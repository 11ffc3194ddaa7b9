package feature

import "errors"

var ErrUnknownFeatureType = errors.New("unknown feature type")
