package dataset

import "errors"

// Sentinel errors for the dataset package.
var (
	ErrInvalidDataset = errors.New("invalid dataset")
	ErrEmptyDataset   = errors.New("empty dataset")
)
