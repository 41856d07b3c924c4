package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

var (
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrInvalidRevenueSource   = errors.New("invalid revenue source")
	ErrInvalidSnapshotPeriod  = errors.New("snapshot period out of range")
	ErrReasonRequired         = errors.New("a reason is required to spend from the reserve")
	ErrDuplicateRevenueSource = errors.New("revenue with this source id already recorded")
	ErrSnapshotAlreadyExists  = errors.New("snapshot for this month already exists")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrPoolNotFound           = errors.New("strategy pool not found")
	ErrShareholderNotFound    = errors.New("executive shareholder not found")
	ErrSeatAlreadyAssigned    = errors.New("executive seat already assigned")
	ErrDistributionInProgress = errors.New("a distribution run is already in progress")
)

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
