package order

type Status string

// Orders are created pending; later states belong to payment and shipping.
const StatusPending Status = "pending"
