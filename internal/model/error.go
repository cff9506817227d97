package model

import "errors"

var ErrorStorage = errors.New("storage failure")
var ErrorAuthentication = errors.New("authentication failed")
var ErrorOperationFailed = errors.New("operation failed")
var ErrorNoSession = errors.New("no saved session")
