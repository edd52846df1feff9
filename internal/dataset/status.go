package dataset

import "fmt"

// Status is the validation/correction state of a single validated cell.
type Status int

const (
	// StatusNone marks a cell that has not been validated (column has no
	// validation list, or validation has not run yet).
	StatusNone Status = iota
	StatusValid
	StatusInvalid
	StatusCorrectable
	StatusCorrected
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	case StatusCorrectable:
		return "correctable"
	case StatusCorrected:
		return "corrected"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// CellRef identifies one cell by zero-based row and column index.
type CellRef struct {
	Row int
	Col int
}

func (c CellRef) String() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

// CellState is the per-cell entry of the status matrix. Original is the
// pre-correction value, retained once a correction has been applied; it is
// audit metadata and never participates in state decisions.
type CellState struct {
	Status   Status
	Original string
}

// Delta lists the cells whose status changed during one engine run, so a
// consumer can refresh only the affected cells.
type Delta []CellRef
