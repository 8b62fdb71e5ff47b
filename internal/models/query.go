package models

// Question is one natural-language query against a restricted candidate set.
// Source lists the document ids the answer must be chosen from; it must be
// non-empty and category-consistent with the referenced documents.
type Question struct {
	QID      int    `json:"qid" validate:"required,gt=0"`
	Category string `json:"category" validate:"required,oneof=finance insurance faq"`
	Query    string `json:"query" validate:"required"`
	Source   []int  `json:"source" validate:"required,min=1,dive,gt=0"`
}

// QuestionSet is the on-disk questions file format
type QuestionSet struct {
	Questions []Question `json:"questions" validate:"required,min=1,dive"`
}

// Prediction is the answer for one question: the single document id the
// retrieval engine judged most relevant.
type Prediction struct {
	QID      int `json:"qid"`
	Retrieve int `json:"retrieve"`

	// Fallback marks a best-effort default answer emitted after the LLM
	// response could not be parsed within the retry budget. It is not part
	// of the output file format.
	Fallback bool `json:"-"`
}

// AnswerSet is the on-disk predictions file format, one entry per question
type AnswerSet struct {
	Answers []Prediction `json:"answers"`
}

// GroundTruthSet is the on-disk ground truth format consumed by evaluate
type GroundTruthSet struct {
	GroundTruths []Prediction `json:"ground_truths"`
}
