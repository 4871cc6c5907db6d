package streaming

// Confusion holds the four counters of one (threshold, class) cell.
type Confusion struct {
	TP int64 `json:"tp"`
	FP int64 `json:"fp"`
	TN int64 `json:"tn"`
	FN int64 `json:"fn"`
}

// Positives is the number of samples whose true label is the class.
func (c Confusion) Positives() int64 { return c.TP + c.FN }

// Negatives is the number of samples whose true label is another class.
func (c Confusion) Negatives() int64 { return c.FP + c.TN }

// PredictedPositives is the number of samples scored at or above the threshold.
func (c Confusion) PredictedPositives() int64 { return c.TP + c.FP }

// PredictedNegatives is the number of samples scored below the threshold.
func (c Confusion) PredictedNegatives() int64 { return c.TN + c.FN }

// Total is the number of samples counted in the cell.
func (c Confusion) Total() int64 { return c.TP + c.FP + c.TN + c.FN }

// Add returns the element-wise sum of c and o.
func (c Confusion) Add(o Confusion) Confusion {
	return Confusion{TP: c.TP + o.TP, FP: c.FP + o.FP, TN: c.TN + o.TN, FN: c.FN + o.FN}
}

// IsZero reports whether all four counters are zero.
func (c Confusion) IsZero() bool { return c == Confusion{} }
