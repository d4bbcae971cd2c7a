package grpcsvc

import (
	"time"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/persist"
)

type idRequest struct {
	ID domain.IDRef `json:"id"`
}

type moveRequest struct {
	ID   domain.IDRef `json:"id"`
	Rank int          `json:"rank"`
}

type nameRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type mediaDTO struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	// Data кодируется в JSON как base64.
	Data []byte `json:"data"`
}

type combinationRequest struct {
	ProductType domain.ProductType   `json:"productType"`
	ColorID     domain.IDRef         `json:"colorId"`
	Variant     domain.VariantFields `json:"variant"`
	DisplayName string               `json:"displayName"`
	ImageRef    string               `json:"imageRef"`
	Image       *mediaDTO            `json:"image"`
}

type mediaRequest struct {
	Ref string `json:"ref"`
}

type orderRequest struct {
	ProductType   domain.ProductType   `json:"productType"`
	CustomerID    domain.IDRef         `json:"customerId"`
	ColorID       domain.IDRef         `json:"colorId"`
	Variant       domain.VariantFields `json:"variant"`
	PrintPosition domain.PrintPosition `json:"printPosition"`
	Sizes         map[string]int       `json:"sizes"`
	Note          string               `json:"note"`
}

type listOrdersRequest struct {
	Status string `json:"status"`
	Search string `json:"search"`
	Sort   string `json:"sort"`
}

type statusRequest struct {
	ID     domain.IDRef `json:"id"`
	Status string       `json:"status"`
}

type reportRequest struct {
	Period   string `json:"period"`
	Filter   string `json:"filter"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type limitRequest struct {
	Limit int `json:"limit"`
}

type syncDTO struct {
	Phase    string `json:"phase"`
	Op       string `json:"op,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
}

type customerDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rank      int       `json:"rank"`
	CreatedAt time.Time `json:"createdAt"`
	Sync      *syncDTO  `json:"sync,omitempty"`
}

type colorDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Rank      int       `json:"rank"`
	CreatedAt time.Time `json:"createdAt"`
	Sync      *syncDTO  `json:"sync,omitempty"`
}

type combinationDTO struct {
	ID          string               `json:"id"`
	ProductType string               `json:"productType"`
	ColorID     string               `json:"colorId"`
	VariantKey  string               `json:"variantKey"`
	Variant     domain.VariantFields `json:"variant"`
	ImageRef    string               `json:"imageRef"`
	DisplayName string               `json:"displayName"`
	CreatedAt   time.Time            `json:"createdAt"`
	Sync        *syncDTO             `json:"sync,omitempty"`
}

type orderDTO struct {
	ID                  string               `json:"id"`
	Number              int64                `json:"number"`
	ProductType         string               `json:"productType"`
	ProductLabel        string               `json:"productLabel"`
	CustomerID          string               `json:"customerId"`
	CustomerName        string               `json:"customerName"`
	ColorID             string               `json:"colorId"`
	ColorName           string               `json:"colorName"`
	Variant             domain.VariantFields `json:"variant"`
	PrintPosition       string               `json:"printPosition"`
	Sizes               map[string]int       `json:"sizes"`
	SizeLabels          []string             `json:"sizeLabels"`
	TotalUnits          int                  `json:"totalUnits"`
	Note                string               `json:"note"`
	Status              string               `json:"status"`
	CombinationImageRef string               `json:"combinationImageRef"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
	Sync                *syncDTO             `json:"sync,omitempty"`
}

type timelineDTO struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason"`
	Occurred time.Time `json:"occurred"`
}

type notificationDTO struct {
	ID       string    `json:"id"`
	Level    string    `json:"level"`
	Message  string    `json:"message"`
	Entity   string    `json:"entity,omitempty"`
	EntityID string    `json:"entityId,omitempty"`
	At       time.Time `json:"at"`
}

type mutationDTO struct {
	Entity string  `json:"entity"`
	ID     string  `json:"id"`
	State  syncDTO `json:"state"`
}

func syncOf(state domain.MutationState, ok bool) *syncDTO {
	if !ok {
		return nil
	}
	return &syncDTO{
		Phase:    string(state.Phase),
		Op:       state.Op,
		Reason:   state.Reason,
		Attempts: state.Attempts,
	}
}

func customerOf(c domain.Customer) customerDTO {
	return customerDTO{ID: c.ID, Name: c.Name, Rank: c.Rank, CreatedAt: c.CreatedAt}
}

func colorOf(c domain.Color) colorDTO {
	return colorDTO{ID: c.ID, Name: c.Name, Code: c.Code, Rank: c.Rank, CreatedAt: c.CreatedAt}
}

func combinationOf(c domain.Combination) combinationDTO {
	dto := combinationDTO{
		ID:          c.ID,
		ProductType: string(c.ProductType),
		ColorID:     c.ColorID,
		Variant:     c.Fields(),
		ImageRef:    c.ImageRef,
		DisplayName: c.DisplayName,
		CreatedAt:   c.CreatedAt,
	}
	if c.Variant != nil {
		dto.VariantKey = c.Variant.String()
	}
	return dto
}

func orderOf(o domain.Order) orderDTO {
	sizes := map[string]int(o.Sizes.Clone())
	if sizes == nil {
		sizes = map[string]int{}
	}
	return orderDTO{
		ID:                  o.ID,
		Number:              o.Number,
		ProductType:         string(o.ProductType),
		ProductLabel:        o.ProductType.Label(),
		CustomerID:          o.CustomerID,
		CustomerName:        o.CustomerName,
		ColorID:             o.ColorID,
		ColorName:           o.ColorName,
		Variant:             o.Fields(),
		PrintPosition:       string(o.PrintPosition),
		Sizes:               sizes,
		SizeLabels:          o.Sizes.Labels(),
		TotalUnits:          o.TotalUnits,
		Note:                o.Note,
		Status:              string(o.Status),
		CombinationImageRef: o.CombinationImageRef,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

func notificationOf(n domain.Notification) notificationDTO {
	return notificationDTO{
		ID:       n.ID,
		Level:    string(n.Level),
		Message:  n.Message,
		Entity:   string(n.Entity),
		EntityID: n.EntityID,
		At:       n.At,
	}
}

func mutationOf(m persist.TrackedMutation) mutationDTO {
	return mutationDTO{Entity: string(m.Entity), ID: m.ID, State: *syncOf(m.State, true)}
}
