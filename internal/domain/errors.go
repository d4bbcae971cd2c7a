package domain

import (
	"errors"
	"fmt"
)

// ErrValidation — общий корень ошибок валидации: такие ошибки отклоняют операцию до любой мутации.
var ErrValidation = errors.New("validation failed")

var (
	// Ошибка отсутствующего заказчика в заказе.
	ErrCustomerRequired = fmt.Errorf("%w: customer is required", ErrValidation)
	// Ошибка отсутствующего цвета.
	ErrColorRequired = fmt.Errorf("%w: color is required", ErrValidation)
	// Ошибка отсутствующего типа изделия.
	ErrProductTypeRequired = fmt.Errorf("%w: product type is required", ErrValidation)
	// Ошибка пустой таблицы размеров (итого 0 изделий).
	ErrNoUnits = fmt.Errorf("%w: at least one unit is required", ErrValidation)
	// Ошибка отрицательного количества по размеру.
	ErrNegativeUnits = fmt.Errorf("%w: size quantity must be non-negative", ErrValidation)
	// Ошибка пустого имени (заказчик/цвет).
	ErrNameRequired = fmt.Errorf("%w: name is required", ErrValidation)
	// Ошибка отсутствующего изображения для комбинации.
	ErrImageRequired = fmt.Errorf("%w: image is required", ErrValidation)
	// Ошибка неизвестного статуса заказа.
	ErrInvalidStatus = fmt.Errorf("%w: unknown order status", ErrValidation)
	// ErrInvalidTransition — переход статуса вне таблицы жизненного цикла.
	ErrInvalidTransition = fmt.Errorf("%w: status transition is not allowed", ErrValidation)
)

var (
	// ErrCustomerNotFound возвращается хранилищем, если заказчик не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrColorNotFound возвращается хранилищем, если цвет не найден.
	ErrColorNotFound = errors.New("color not found")
	// ErrCombinationNotFound возвращается хранилищем, если комбинация не найдена.
	ErrCombinationNotFound = errors.New("combination not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrMediaNotFound — изображение не найдено в медиа-хранилище.
	ErrMediaNotFound = errors.New("media not found")
	// ErrOrderNumberConflict — номер заказа уже занят.
	ErrOrderNumberConflict = errors.New("order number conflict")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsValidation проверяет, является ли ошибка ошибкой валидации.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound проверяет, сообщает ли ошибка об отсутствии сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrColorNotFound) ||
		errors.Is(err, ErrCombinationNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrMediaNotFound)
}
