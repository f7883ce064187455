package models

// Owner identifies the contributor a question, answer, or comment belongs to.
type Owner struct {
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName,omitempty"`
}

type Comment struct {
	ID        string `json:"id"`
	Owner     Owner  `json:"owner"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

type Answer struct {
	ID        string    `json:"id"`
	Owner     Owner     `json:"owner"`
	Body      string    `json:"body"`
	Comments  []Comment `json:"comments"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	CreatedAt string    `json:"createdAt"`
}

// Question is the aggregate root. Answers and comments live inside the
// document and have no lifecycle of their own.
type Question struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	Tags             []string  `json:"tags,omitempty"`
	Owner            Owner     `json:"owner"`
	CreatedAt        string    `json:"createdAt"`
	LastActivityAt   string    `json:"lastActivityAt"`
	Comments         []Comment `json:"comments"`
	Answers          []Answer  `json:"answers"`
	Upvotes          int       `json:"upvotes"`
	Downvotes        int       `json:"downvotes"`
	AcceptedAnswerID *string   `json:"acceptedAnswerId,omitempty"`
}
