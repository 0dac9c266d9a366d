package tools

import (
	"context"
	"errors"
	"math"
	"strconv"
)

type AddInput struct {
	ToAdd []float64 `json:"toAdd" jsonschema_description:"The numbers to add."`
}

type BinaryInput struct {
	A float64 `json:"a" jsonschema_description:"First number."`
	B float64 `json:"b" jsonschema_description:"Second number."`
}

type SquareRootInput struct {
	A float64 `json:"a" jsonschema_description:"The number to take the square root of."`
}

var (
	AddDefinition = NewTool("add", "A tool to add a list of numbers.",
		func(_ context.Context, in AddInput) (string, error) {
			sum := 0.0
			for _, v := range in.ToAdd {
				sum += v
			}
			return formatNumber(sum), nil
		})

	SubtractDefinition = NewTool("subtract", "A tool to subtract two numbers (a - b).",
		func(_ context.Context, in BinaryInput) (string, error) {
			return formatNumber(in.A - in.B), nil
		})

	MultiplyDefinition = NewTool("multiply", "A tool to multiply two numbers.",
		func(_ context.Context, in BinaryInput) (string, error) {
			return formatNumber(in.A * in.B), nil
		})

	DivideDefinition = NewTool("divide", "A tool to divide two numbers (a / b).",
		func(_ context.Context, in BinaryInput) (string, error) {
			if in.B == 0 {
				return "", errDivideByZero
			}
			return formatNumber(in.A / in.B), nil
		})

	ModulusDefinition = NewTool("modulus", "A tool to find the modulus of two numbers (a mod b).",
		func(_ context.Context, in BinaryInput) (string, error) {
			if in.B == 0 {
				return "", errDivideByZero
			}
			return formatNumber(floorMod(in.A, in.B)), nil
		})

	PowerDefinition = NewTool("power", "A tool to raise a number to a power (a ** b).",
		func(_ context.Context, in BinaryInput) (string, error) {
			v := math.Pow(in.A, in.B)
			if math.IsNaN(v) {
				return "", errors.New("result is not a real number")
			}
			return formatNumber(v), nil
		})

	SquareRootDefinition = NewTool("square_root", "A tool to get the square root of a number. Negative numbers give an imaginary result.",
		func(_ context.Context, in SquareRootInput) (string, error) {
			if in.A >= 0 {
				return formatNumber(math.Sqrt(in.A)), nil
			}
			return formatNumber(math.Sqrt(-in.A)) + "i", nil
		})
)

var errDivideByZero = errors.New("cannot divide by zero")

// floorMod follows the sign of the divisor, so -7 mod 3 is 2.
func floorMod(a, b float64) float64 {
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

// formatNumber prints integral values without a fractional part.
func formatNumber(v float64) string {
	if math.IsInf(v, 0) {
		if v > 0 {
			return "inf"
		}
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
