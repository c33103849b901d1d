package rules

import "errors"

// ErrDuplicateRuleUID is returned by Add when the caller supplies a UID
// already present in the registry. It is a programmer-error condition per
// the error-handling policy: no status update accompanies it.
var ErrDuplicateRuleUID = errors.New("rules: rule UID already exists")

// ErrInvalidTypeUID is returned by Add/Update when a module carries an
// empty type UID.
var ErrInvalidTypeUID = errors.New("rules: module type UID must not be empty")

// ErrRuleNotFound is returned by Update/SetEnabled when the UID does not
// name a registered rule.
var ErrRuleNotFound = errors.New("rules: rule not found")

// ErrEngineDisposed is returned by Add and Update when called after Dispose.
var ErrEngineDisposed = errors.New("rules: engine has been disposed")
