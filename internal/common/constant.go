package common

// Domain limits shared by input validation and the engines.
const (
	MinBucketCapacity = 1
	MaxBucketCapacity = 99

	MinFruitExpirationSeconds = 1
	MaxFruitExpirationSeconds = 14 * 24 * 60 * 60

	MinFruitNameLength = 1
	MaxFruitNameLength = 255

	MinFruitPriceCents = 0
	MaxFruitPriceCents = 100_000_000

	MaxEmailLength    = 512
	MaxFullNameLength = 1024

	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// DefaultPageLimit is applied by list endpoints when no limit is given.
const DefaultPageLimit = 100
