package domain

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// fieldErrors сопоставляет поля черновиков доменным ошибкам.
var fieldErrors = map[string]error{
	"ProductType": ErrProductTypeRequired,
	"CustomerID":  ErrCustomerRequired,
	"ColorID":     ErrColorRequired,
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if mapped, ok := fieldErrors[fe.Field()]; ok {
				return mapped
			}
		}
	}
	return errors.Join(ErrValidation, err)
}

// Validate проверяет черновик заказа: обязательные выборы и ненулевое итоговое количество.
func (d OrderDraft) Validate() error {
	d.CustomerID = strings.TrimSpace(d.CustomerID)
	d.ColorID = strings.TrimSpace(d.ColorID)
	if err := structValidator().Struct(d); err != nil {
		return translate(err)
	}
	for _, qty := range d.Sizes {
		if qty < 0 {
			return ErrNegativeUnits
		}
	}
	if d.Sizes.Total() == 0 {
		return ErrNoUnits
	}
	return nil
}

// Validate проверяет черновик комбинации.
func (d CombinationDraft) Validate() error {
	d.ColorID = strings.TrimSpace(d.ColorID)
	if err := structValidator().Struct(d); err != nil {
		return translate(err)
	}
	return nil
}
