// Package recipes is the converter registry: the static table mapping a
// slug such as "png-to-jpg" to the inputs it accepts, the format it produces
// and the handler family that performs it. The table is validated once at
// startup and read-only afterwards.
package recipes
