package http

// URL parameter names shared by the router and the handlers.
const (
	TransactionIDParam = "transactionId"
	UserIDParam        = "userId"
)
