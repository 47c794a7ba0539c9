package dto

// HintResponse returns the revealed hint content and its cost.
type HintResponse struct {
	Content   string `json:"content"`
	Deduction int    `json:"deduction"`
}
