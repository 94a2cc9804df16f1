// Package climate implements the multi-modal weather dataset: the sample shape
// contract, the CSV column contract, feature standardisation, the seeded
// train/validation preparation and an explicit synthetic test mode.
package climate
