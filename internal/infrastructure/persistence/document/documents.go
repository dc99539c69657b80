package document

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/trade"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names
const (
	productsCollection = "products"
	usersCollection    = "users"
	ordersCollection   = "orders"
)

// Identifiers are stored as canonical uuid strings, money as Decimal128 so
// range filters and sorts compare numerically.

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// aggregateFields is inlined into every document through an exported field;
// the bson codec skips unexported embedded structs.
type aggregateFields struct {
	ID        string    `bson:"_id"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
	Version   int       `bson:"version"`
}

func aggregateFrom(a shared.BaseAggregateRoot) aggregateFields {
	return aggregateFields{
		ID:        a.ID.String(),
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
		Version:   a.Version,
	}
}

func (f aggregateFields) root() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: shared.BaseEntity{
			ID:        parseID(f.ID),
			CreatedAt: f.CreatedAt,
			UpdatedAt: f.UpdatedAt,
		},
		Version: f.Version,
	}
}

type imageDoc struct {
	PublicID string `bson:"publicId"`
	URL      string `bson:"url"`
}

type reviewDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user"`
	Name      string    `bson:"name"`
	Rating    int       `bson:"rating"`
	Comment   string    `bson:"comment"`
	CreatedAt time.Time `bson:"createdAt"`
}

type productDoc struct {
	Meta         aggregateFields       `bson:",inline"`
	Name         string                `bson:"name"`
	Description  string                `bson:"description"`
	Price        primitive.Decimal128  `bson:"price"`
	OldPrice     *primitive.Decimal128 `bson:"oldPrice,omitempty"`
	Discount     int                   `bson:"discount"`
	Images       []imageDoc            `bson:"images"`
	Category     string                `bson:"category"`
	Brand        string                `bson:"brand"`
	Volume       string                `bson:"volume"`
	Color        string                `bson:"color"`
	Stock        int                   `bson:"stock"`
	Ratings      float64               `bson:"ratings"`
	NumOfReviews int                   `bson:"numOfReviews"`
	Reviews      []reviewDoc           `bson:"reviews"`
	Featured     bool                  `bson:"featured"`
	BestSeller   bool                  `bson:"bestSeller"`
}

func productDocFrom(p *catalog.Product) productDoc {
	doc := productDoc{
		Meta:         aggregateFrom(p.BaseAggregateRoot),
		Name:         p.Name,
		Description:  p.Description,
		Price:        toDecimal128(p.Price),
		Discount:     p.Discount,
		Category:     p.Category.String(),
		Brand:        p.Brand,
		Volume:       p.Volume,
		Color:        p.Color,
		Stock:        p.Stock,
		Ratings:      p.Ratings,
		NumOfReviews: p.NumOfReviews,
		Featured:     p.Featured,
		BestSeller:   p.BestSeller,
		Images:       make([]imageDoc, len(p.Images)),
		Reviews:      make([]reviewDoc, len(p.Reviews)),
	}
	if p.OldPrice != nil {
		old := toDecimal128(*p.OldPrice)
		doc.OldPrice = &old
	}
	for i, img := range p.Images {
		doc.Images[i] = imageDoc{PublicID: img.PublicID, URL: img.URL}
	}
	for i, r := range p.Reviews {
		doc.Reviews[i] = reviewDoc{
			ID:        r.ID.String(),
			UserID:    r.UserID.String(),
			Name:      r.Name,
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt.UTC(),
		}
	}
	return doc
}

func (d productDoc) toDomain() *catalog.Product {
	p := &catalog.Product{
		BaseAggregateRoot: d.Meta.root(),
		Name:              d.Name,
		Description:       d.Description,
		Price:             fromDecimal128(d.Price),
		Discount:          d.Discount,
		Category:          catalog.Category(d.Category),
		Brand:             d.Brand,
		Volume:            d.Volume,
		Color:             d.Color,
		Stock:             d.Stock,
		Ratings:           d.Ratings,
		NumOfReviews:      d.NumOfReviews,
		Featured:          d.Featured,
		BestSeller:        d.BestSeller,
		Images:            make([]catalog.Image, len(d.Images)),
		Reviews:           make([]catalog.Review, len(d.Reviews)),
	}
	if d.OldPrice != nil {
		old := fromDecimal128(*d.OldPrice)
		p.OldPrice = &old
	}
	for i, img := range d.Images {
		p.Images[i] = catalog.Image{PublicID: img.PublicID, URL: img.URL}
	}
	for i, r := range d.Reviews {
		p.Reviews[i] = catalog.Review{
			ID:        parseID(r.ID),
			UserID:    parseID(r.UserID),
			Name:      r.Name,
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt,
		}
	}
	return p
}

type addressBookDoc struct {
	Label     string                 `bson:"label"`
	Address   valueobject.AddressDTO `bson:"address"`
	IsDefault bool                   `bson:"isDefault"`
}

type userDoc struct {
	Meta                     aggregateFields         `bson:",inline"`
	Name                     string                  `bson:"name"`
	Email                    string                  `bson:"email"`
	PasswordHash             string                  `bson:"password"`
	Role                     string                  `bson:"role"`
	Status                   string                  `bson:"status"`
	Avatar                   string                  `bson:"avatar,omitempty"`
	Phone                    string                  `bson:"phone,omitempty"`
	Address                  *valueobject.AddressDTO `bson:"address,omitempty"`
	Addresses                []addressBookDoc        `bson:"addresses"`
	EmailVerified            bool                    `bson:"emailVerified"`
	EmailVerificationHash    string                  `bson:"emailVerificationToken,omitempty"`
	EmailVerificationExpires *time.Time              `bson:"emailVerificationExpires,omitempty"`
	PhoneVerified            bool                    `bson:"phoneVerified"`
	PhoneVerificationHash    string                  `bson:"phoneVerificationCode,omitempty"`
	PhoneVerificationExpires *time.Time              `bson:"phoneVerificationExpires,omitempty"`
	TemporaryPassword        bool                    `bson:"temporaryPassword"`
}

func userDocFrom(u *identity.User) userDoc {
	doc := userDoc{
		Meta:                     aggregateFrom(u.BaseAggregateRoot),
		Name:                     u.Name,
		Email:                    u.Email,
		PasswordHash:             u.PasswordHash,
		Role:                     string(u.Role),
		Status:                   string(u.Status),
		Avatar:                   u.Avatar,
		Phone:                    u.Phone,
		EmailVerified:            u.EmailVerified,
		EmailVerificationHash:    u.EmailVerificationHash,
		EmailVerificationExpires: u.EmailVerificationExpires,
		PhoneVerified:            u.PhoneVerified,
		PhoneVerificationHash:    u.PhoneVerificationHash,
		PhoneVerificationExpires: u.PhoneVerificationExpires,
		TemporaryPassword:        u.TemporaryPassword,
		Addresses:                make([]addressBookDoc, len(u.Addresses)),
	}
	if !u.Address.IsEmpty() {
		addr := u.Address.ToDTO()
		doc.Address = &addr
	}
	for i, a := range u.Addresses {
		doc.Addresses[i] = addressBookDoc{Label: a.Label, Address: a.Address.ToDTO(), IsDefault: a.IsDefault}
	}
	return doc
}

func (d userDoc) toDomain() *identity.User {
	u := &identity.User{
		BaseAggregateRoot:        d.Meta.root(),
		Name:                     d.Name,
		Email:                    d.Email,
		PasswordHash:             d.PasswordHash,
		Role:                     identity.Role(d.Role),
		Status:                   identity.UserStatus(d.Status),
		Avatar:                   d.Avatar,
		Phone:                    d.Phone,
		EmailVerified:            d.EmailVerified,
		EmailVerificationHash:    d.EmailVerificationHash,
		EmailVerificationExpires: d.EmailVerificationExpires,
		PhoneVerified:            d.PhoneVerified,
		PhoneVerificationHash:    d.PhoneVerificationHash,
		PhoneVerificationExpires: d.PhoneVerificationExpires,
		TemporaryPassword:        d.TemporaryPassword,
		Addresses:                make([]identity.LabeledAddress, 0, len(d.Addresses)),
	}
	if d.Address != nil {
		if addr, err := d.Address.ToAddress(); err == nil {
			u.Address = addr
		}
	}
	for _, entry := range d.Addresses {
		addr, err := entry.Address.ToAddress()
		if err != nil {
			continue
		}
		u.Addresses = append(u.Addresses, identity.LabeledAddress{Label: entry.Label, Address: addr, IsDefault: entry.IsDefault})
	}
	return u
}

type orderItemDoc struct {
	ProductID string               `bson:"product"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
}

type paymentDoc struct {
	ID     string `bson:"id"`
	Status string `bson:"status"`
	Method string `bson:"method"`
}

type statusChangeDoc struct {
	Status string    `bson:"status"`
	Date   time.Time `bson:"date"`
}

type orderDoc struct {
	Meta            aggregateFields        `bson:",inline"`
	UserID          string                 `bson:"user"`
	OrderNumber     string                 `bson:"orderNumber"`
	Items           []orderItemDoc         `bson:"orderItems"`
	ShippingAddress valueobject.AddressDTO `bson:"shippingAddress"`
	Payment         paymentDoc             `bson:"paymentInfo"`
	PaidAt          time.Time              `bson:"paidAt"`
	Subtotal        primitive.Decimal128   `bson:"subtotal"`
	Tax             primitive.Decimal128   `bson:"tax"`
	ShippingCost    primitive.Decimal128   `bson:"shippingCost"`
	TotalAmount     primitive.Decimal128   `bson:"totalAmount"`
	Status          string                 `bson:"status"`
	StatusHistory   []statusChangeDoc      `bson:"statusHistory"`
	DeliveredAt     *time.Time             `bson:"deliveredAt,omitempty"`
}

func orderDocFrom(o *trade.Order) orderDoc {
	doc := orderDoc{
		Meta:            aggregateFrom(o.BaseAggregateRoot),
		UserID:          o.UserID.String(),
		OrderNumber:     o.OrderNumber,
		ShippingAddress: o.ShippingAddress.ToDTO(),
		Payment:         paymentDoc{ID: o.Payment.ID, Status: o.Payment.Status, Method: o.Payment.Method},
		PaidAt:          o.PaidAt.UTC(),
		Subtotal:        toDecimal128(o.Subtotal),
		Tax:             toDecimal128(o.Tax),
		ShippingCost:    toDecimal128(o.ShippingCost),
		TotalAmount:     toDecimal128(o.TotalAmount),
		Status:          o.Status.String(),
		DeliveredAt:     o.DeliveredAt,
		Items:           make([]orderItemDoc, len(o.Items)),
		StatusHistory:   make([]statusChangeDoc, len(o.StatusHistory)),
	}
	for i, item := range o.Items {
		doc.Items[i] = orderItemDoc{ProductID: item.ProductID.String(), Quantity: item.Quantity, Price: toDecimal128(item.Price)}
	}
	for i, h := range o.StatusHistory {
		doc.StatusHistory[i] = statusChangeDoc{Status: h.Status.String(), Date: h.Date.UTC()}
	}
	return doc
}

func (d orderDoc) toDomain() *trade.Order {
	o := &trade.Order{
		BaseAggregateRoot: d.Meta.root(),
		UserID:            parseID(d.UserID),
		OrderNumber:       d.OrderNumber,
		Payment:           trade.PaymentInfo{ID: d.Payment.ID, Status: d.Payment.Status, Method: d.Payment.Method},
		PaidAt:            d.PaidAt,
		Subtotal:          fromDecimal128(d.Subtotal),
		Tax:               fromDecimal128(d.Tax),
		ShippingCost:      fromDecimal128(d.ShippingCost),
		TotalAmount:       fromDecimal128(d.TotalAmount),
		Status:            trade.OrderStatus(d.Status),
		DeliveredAt:       d.DeliveredAt,
		Items:             make([]trade.OrderItem, len(d.Items)),
		StatusHistory:     make([]trade.StatusChange, len(d.StatusHistory)),
	}
	if addr, err := d.ShippingAddress.ToAddress(); err == nil {
		o.ShippingAddress = addr
	}
	for i, item := range d.Items {
		o.Items[i] = trade.OrderItem{ProductID: parseID(item.ProductID), Quantity: item.Quantity, Price: fromDecimal128(item.Price)}
	}
	for i, h := range d.StatusHistory {
		o.StatusHistory[i] = trade.StatusChange{Status: trade.OrderStatus(h.Status), Date: h.Date}
	}
	return o
}
