package grpcsvc

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/persist"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/report"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/state"
)

const (
	defaultNotificationsLimit = 50
	retryFailedTimeout        = 30 * time.Second
)

// Workshop — операции контейнера состояния, которые публикует gRPC API.
type Workshop interface {
	Customers() []domain.Customer
	AddCustomer(name string) (domain.Customer, error)
	DeleteCustomer(id string) bool
	MoveCustomer(id string, rank int) bool

	Colors() []domain.Color
	AddColor(name, code string) (domain.Color, error)
	DeleteColor(id string) bool
	MoveColor(id string, rank int) bool

	Combinations() []domain.Combination
	SaveCombination(draft domain.CombinationDraft, media *domain.MediaFile) (domain.Combination, error)
	DeleteCombination(id string) bool
	FindCombination(productType domain.ProductType, colorID any, fields domain.VariantFields) (domain.Combination, bool)
	Media(ctx context.Context, ref string) (domain.MediaFile, error)

	ListOrders(filter state.OrderFilter) []domain.Order
	Order(id string) (domain.Order, bool)
	OrderTimeline(id string) ([]domain.TimelineEvent, error)
	CreateOrder(draft domain.OrderDraft) (domain.Order, error)
	SetOrderStatus(id string, status domain.OrderStatus) (domain.Order, bool, error)
	DeleteOrder(id string) bool
	StatusCounts() map[domain.OrderStatus]int

	MutationState(entity domain.Entity, id string) (domain.MutationState, bool)
	FailedMutations() []persist.TrackedMutation
	PendingMutations() []persist.TrackedMutation
	RetryFailed(ctx context.Context) (int, error)

	Report(q report.Query) (report.Report, error)
}

// Notifications — лента уведомлений для клиентов.
type Notifications interface {
	Recent(limit int) []domain.Notification
	Subscribe() (<-chan domain.Notification, func())
}

// WorkshopService реализует WorkshopServer поверх контейнера состояния.
type WorkshopService struct {
	workshop      Workshop
	notifications Notifications
	logger        *log.Entry
}

// NewWorkshopService конструирует сервис с зависимостями.
func NewWorkshopService(workshop Workshop, notifications Notifications, logger *log.Entry) *WorkshopService {
	if logger == nil {
		logger = log.New().WithField("component", "workshop-service")
	}
	return &WorkshopService{
		workshop:      workshop,
		notifications: notifications,
		logger:        logger,
	}
}

// ListCustomers возвращает заказчиков в порядке позиций.
func (s *WorkshopService) ListCustomers(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	customers := s.workshop.Customers()
	items := make([]customerDTO, 0, len(customers))
	for _, c := range customers {
		dto := customerOf(c)
		dto.Sync = syncOf(s.workshop.MutationState(domain.EntityCustomer, c.ID))
		items = append(items, dto)
	}
	return encode(map[string]any{"items": items})
}

// AddCustomer добавляет заказчика в конец списка.
func (s *WorkshopService) AddCustomer(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req nameRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	customer, err := s.workshop.AddCustomer(req.Name)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"customer": customerOf(customer)})
}

// DeleteCustomer удаляет заказчика; отсутствующий идентификатор не является ошибкой.
func (s *WorkshopService) DeleteCustomer(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireID(in)
	if err != nil {
		return nil, err
	}
	return changed(s.workshop.DeleteCustomer(id))
}

// MoveCustomer переносит заказчика на новую позицию.
func (s *WorkshopService) MoveCustomer(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeMove(in)
	if err != nil {
		return nil, err
	}
	return changed(s.workshop.MoveCustomer(req.ID.String(), req.Rank))
}

// ListColors возвращает цвета в порядке позиций.
func (s *WorkshopService) ListColors(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	colors := s.workshop.Colors()
	items := make([]colorDTO, 0, len(colors))
	for _, c := range colors {
		dto := colorOf(c)
		dto.Sync = syncOf(s.workshop.MutationState(domain.EntityColor, c.ID))
		items = append(items, dto)
	}
	return encode(map[string]any{"items": items})
}

// AddColor добавляет цвет.
func (s *WorkshopService) AddColor(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req nameRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	color, err := s.workshop.AddColor(req.Name, strings.TrimSpace(req.Code))
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"color": colorOf(color)})
}

// DeleteColor удаляет цвет.
func (s *WorkshopService) DeleteColor(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireID(in)
	if err != nil {
		return nil, err
	}
	return changed(s.workshop.DeleteColor(id))
}

// MoveColor переносит цвет на новую позицию.
func (s *WorkshopService) MoveColor(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeMove(in)
	if err != nil {
		return nil, err
	}
	return changed(s.workshop.MoveColor(req.ID.String(), req.Rank))
}

// ListCombinations возвращает каталог комбинаций.
func (s *WorkshopService) ListCombinations(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	combinations := s.workshop.Combinations()
	items := make([]combinationDTO, 0, len(combinations))
	for _, c := range combinations {
		dto := combinationOf(c)
		dto.Sync = syncOf(s.workshop.MutationState(domain.EntityCombination, c.ID))
		items = append(items, dto)
	}
	return encode(map[string]any{"items": items})
}

// SaveCombination сохраняет (или заменяет по ключу) комбинацию с изображением.
func (s *WorkshopService) SaveCombination(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req combinationRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	draft := domain.CombinationDraft{
		ProductType: req.ProductType,
		ColorID:     req.ColorID.String(),
		Variant:     req.Variant,
		DisplayName: req.DisplayName,
		ImageRef:    req.ImageRef,
	}
	var media *domain.MediaFile
	if req.Image != nil {
		media = &domain.MediaFile{Name: req.Image.Name, ContentType: req.Image.ContentType, Data: req.Image.Data}
	}
	combination, err := s.workshop.SaveCombination(draft, media)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"combination": combinationOf(combination)})
}

// DeleteCombination удаляет комбинацию.
func (s *WorkshopService) DeleteCombination(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireID(in)
	if err != nil {
		return nil, err
	}
	return changed(s.workshop.DeleteCombination(id))
}

// FindCombination ищет комбинацию по ключу варианта.
func (s *WorkshopService) FindCombination(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req combinationRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	combination, ok := s.workshop.FindCombination(req.ProductType, req.ColorID.String(), req.Variant)
	if !ok {
		return encode(map[string]any{"found": false})
	}
	return encode(map[string]any{"found": true, "combination": combinationOf(combination)})
}

// GetMedia возвращает изображение комбинации.
func (s *WorkshopService) GetMedia(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req mediaRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Ref) == "" {
		return nil, status.Error(codes.InvalidArgument, "ref is required")
	}
	file, err := s.workshop.Media(ctx, req.Ref)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"media": mediaDTO{Name: file.Name, ContentType: file.ContentType, Data: file.Data}})
}

// ListOrders возвращает заказы с фильтром и счётчиками по статусам.
func (s *WorkshopService) ListOrders(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listOrdersRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	filter := state.OrderFilter{Search: req.Search, Sort: state.SortNewest}
	if req.Status != "" {
		filter.Status = domain.OrderStatus(req.Status)
		if !filter.Status.Valid() {
			return nil, toStatus(domain.ErrInvalidStatus)
		}
	}
	switch state.SortOrder(req.Sort) {
	case "", state.SortNewest:
	case state.SortOldest:
		filter.Sort = state.SortOldest
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown sort %q", req.Sort)
	}

	orders := s.workshop.ListOrders(filter)
	items := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		dto := orderOf(o)
		dto.Sync = syncOf(s.workshop.MutationState(domain.EntityOrder, o.ID))
		items = append(items, dto)
	}
	counts := make(map[string]int)
	for st, n := range s.workshop.StatusCounts() {
		counts[string(st)] = n
	}
	return encode(map[string]any{"items": items, "counts": counts})
}

// GetOrder возвращает заказ вместе с историей статусов.
func (s *WorkshopService) GetOrder(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireID(in)
	if err != nil {
		return nil, err
	}
	order, ok := s.workshop.Order(id)
	if !ok {
		return nil, status.Error(codes.NotFound, domain.ErrOrderNotFound.Error())
	}
	dto := orderOf(order)
	dto.Sync = syncOf(s.workshop.MutationState(domain.EntityOrder, order.ID))

	timeline := make([]timelineDTO, 0)
	events, err := s.workshop.OrderTimeline(order.ID)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to list timeline events")
	}
	for _, e := range events {
		timeline = append(timeline, timelineDTO{Type: e.Type, Reason: e.Reason, Occurred: e.Occurred})
	}
	return encode(map[string]any{"order": dto, "timeline": timeline})
}

// CreateOrder создаёт заказ с номером из аллокатора.
func (s *WorkshopService) CreateOrder(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req orderRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	order, err := s.workshop.CreateOrder(domain.OrderDraft{
		ProductType:   req.ProductType,
		CustomerID:    req.CustomerID.String(),
		ColorID:       req.ColorID.String(),
		Variant:       req.Variant,
		PrintPosition: req.PrintPosition,
		Sizes:         domain.SizeTable(req.Sizes),
		Note:          req.Note,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.WithFields(log.Fields{"order_id": order.ID, "number": order.Number}).Debug("order created")
	return encode(map[string]any{"order": orderOf(order)})
}

// SetOrderStatus переводит заказ в указанный статус по таблице переходов.
func (s *WorkshopService) SetOrderStatus(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req statusRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	order, ok, err := s.workshop.SetOrderStatus(req.ID.String(), domain.OrderStatus(req.Status))
	if err != nil {
		return nil, toStatus(err)
	}
	if !ok {
		return encode(map[string]any{"changed": false})
	}
	return encode(map[string]any{"changed": true, "order": orderOf(order)})
}

// DeleteOrder удаляет заказ.
func (s *WorkshopService) DeleteOrder(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireID(in)
	if err != nil {
		return nil, err
	}
	return changed(s.workshop.DeleteOrder(id))
}

// GetReport строит аналитику по выполненным заказам.
func (s *WorkshopService) GetReport(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req reportRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	result, err := s.workshop.Report(report.Query{
		Period:   report.Period(req.Period),
		Filter:   req.Filter,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(result)
}

// ListNotifications возвращает последние уведомления, новые первыми.
func (s *WorkshopService) ListNotifications(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req limitRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		req.Limit = defaultNotificationsLimit
	}
	items := make([]notificationDTO, 0)
	if s.notifications != nil {
		for _, n := range s.notifications.Recent(req.Limit) {
			items = append(items, notificationOf(n))
		}
	}
	return encode(map[string]any{"items": items})
}

// ListMutations возвращает неподтверждённые и отклонённые мутации.
func (s *WorkshopService) ListMutations(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	pending := s.workshop.PendingMutations()
	failed := s.workshop.FailedMutations()

	pendingItems := make([]mutationDTO, 0, len(pending))
	for _, m := range pending {
		pendingItems = append(pendingItems, mutationOf(m))
	}
	failedItems := make([]mutationDTO, 0, len(failed))
	for _, m := range failed {
		failedItems = append(failedItems, mutationOf(m))
	}
	return encode(map[string]any{"pending": pendingItems, "failed": failedItems})
}

// RetryFailed повторяет отклонённые мутации и ждёт их обработки.
func (s *WorkshopService) RetryFailed(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(ctx, retryFailedTimeout)
	defer cancel()

	replayed, err := s.workshop.RetryFailed(ctx)
	if err != nil {
		return nil, status.Error(codes.DeadlineExceeded, err.Error())
	}
	return encode(map[string]any{"replayed": replayed, "failed": len(s.workshop.FailedMutations())})
}

// WatchNotifications транслирует новые уведомления, пока клиент не отключится.
func (s *WorkshopService) WatchNotifications(_ *structpb.Struct, stream grpc.ServerStream) error {
	if s.notifications == nil {
		return status.Error(codes.Unavailable, "notifications are not configured")
	}
	ch, unsubscribe := s.notifications.Subscribe()
	defer unsubscribe()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := encode(notificationOf(n))
			if err != nil {
				return err
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

func requireID(in *structpb.Struct) (string, error) {
	var req idRequest
	if err := decode(in, &req); err != nil {
		return "", err
	}
	if req.ID == "" {
		return "", status.Error(codes.InvalidArgument, "id is required")
	}
	return req.ID.String(), nil
}

func decodeMove(in *structpb.Struct) (moveRequest, error) {
	var req moveRequest
	if err := decode(in, &req); err != nil {
		return moveRequest{}, err
	}
	if req.ID == "" {
		return moveRequest{}, status.Error(codes.InvalidArgument, "id is required")
	}
	if req.Rank < 0 {
		return moveRequest{}, status.Error(codes.InvalidArgument, "rank must be >= 0")
	}
	return req, nil
}

func changed(ok bool) (*structpb.Struct, error) {
	return encode(map[string]any{"changed": ok})
}

var _ WorkshopServer = (*WorkshopService)(nil)
var _ Workshop = (*state.Container)(nil)
