package cart

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxQuantity is the largest quantity the INTEGER column can hold.
const MaxQuantity = math.MaxInt32

var (
	ErrNotFound        = errors.New("cart line not found")
	ErrInvalidQuantity = errors.New("quantity must be a whole number between 1 and 2147483647")
	ErrInvalidOwner    = errors.New("cart owner must be exactly one of account or session")
)

// Owner identifies whose cart a line belongs to: a signed-in account or an
// anonymous browsing session, never both.
type Owner struct {
	AccountID  int64
	SessionKey string
}

func AccountOwner(id int64) Owner {
	return Owner{AccountID: id}
}

func SessionOwner(key string) Owner {
	return Owner{SessionKey: key}
}

func (o Owner) IsAccount() bool {
	return o.AccountID != 0
}

func (o Owner) Validate() error {
	if (o.AccountID != 0) == (o.SessionKey != "") {
		return ErrInvalidOwner
	}
	if o.AccountID < 0 {
		return ErrInvalidOwner
	}
	return nil
}

// column returns the cart_lines column holding this owner and its value.
func (o Owner) column() (string, any) {
	if o.IsAccount() {
		return "account_id", o.AccountID
	}
	return "session_key", o.SessionKey
}

type Line struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type DetailedLine struct {
	Line
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	Image           string          `json:"image"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// View is the rendered cart returned after every mutation.
type View struct {
	Lines         []DetailedLine  `json:"lines"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
}

func newView(lines []DetailedLine) View {
	v := View{Lines: lines, TotalPrice: decimal.Zero}
	if v.Lines == nil {
		v.Lines = []DetailedLine{}
	}
	for _, l := range v.Lines {
		v.TotalQuantity += l.Quantity
		v.TotalPrice = v.TotalPrice.Add(l.Subtotal)
	}
	return v
}

// ParseQuantity converts a raw form value into a line quantity.
func ParseQuantity(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !validQuantity(n) {
		return 0, ErrInvalidQuantity
	}
	return n, nil
}

func validQuantity(n int) bool {
	return n >= 1 && n <= MaxQuantity
}
