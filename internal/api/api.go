package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hypernova-labs/aquatrack-service/internal/auth"
	"github.com/hypernova-labs/aquatrack-service/internal/ledger"
	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/hypernova-labs/aquatrack-service/internal/services"
	"github.com/sirupsen/logrus"
)

// API maneja todos los endpoints de la API
type API struct {
	ledger           *ledger.Ledger
	customerService  *services.CustomerService
	userService      *services.UserService
	reportService    *services.ReportService
	statementService *services.StatementService
	logger           *logrus.Logger
}

// NewAPI crea una nueva instancia de la API
func NewAPI(
	orderLedger *ledger.Ledger,
	customerService *services.CustomerService,
	userService *services.UserService,
	reportService *services.ReportService,
	statementService *services.StatementService,
	logger *logrus.Logger,
) *API {
	return &API{
		ledger:           orderLedger,
		customerService:  customerService,
		userService:      userService,
		reportService:    reportService,
		statementService: statementService,
		logger:           logger,
	}
}

// RegisterRoutes monta los endpoints bajo v1. authMiddleware debe dejar la identidad en el contexto.
func (api *API) RegisterRoutes(v1 *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	authed := v1.Group("")
	authed.Use(authMiddleware)
	{
		// Sesión (cualquier usuario autenticado, incluso pendiente)
		authed.GET("/me", api.GetSession)
		authed.POST("/me", api.Register)
	}

	staff := authed.Group("")
	staff.Use(auth.RequirePredicate(ledger.IsActive))
	{
		// Customers
		staff.GET("/customers", api.ListCustomers)
		staff.GET("/customers/:id/bill", api.GetCustomerBill)
		staff.POST("/customers/:id/settle", api.SettleCustomerBill)
		staff.GET("/customers/:id/statement", api.GetStatement)
		staff.POST("/customers/:id/containers", api.AdjustContainers)
		staff.POST("/customers/:id/containers/return", api.ReturnContainers)

		// Orders
		staff.POST("/orders", api.LogOrder)
		staff.GET("/orders", api.ListOrders)
		staff.GET("/orders/events", api.ListEventOrders)
		staff.POST("/orders/:id/toggle-payment", api.TogglePayment)

		// Reports
		staff.GET("/reports/daily", api.GetDailySummary)
		staff.GET("/reports/reminders", api.GetReminders)
		staff.GET("/reports/bills", api.GetOutstandingBills)
	}

	admin := authed.Group("")
	admin.Use(auth.RequirePredicate(ledger.IsPrivileged))
	{
		admin.POST("/customers", api.CreateCustomer)
		admin.PUT("/customers/:id", api.UpdateCustomer)
		admin.DELETE("/customers/:id", api.DeleteCustomer)

		admin.GET("/admin/users", api.ListUsers)
		admin.GET("/admin/users/pending", api.ListPendingUsers)
		admin.POST("/admin/users/:id/approve", api.ApproveUser)
		admin.PUT("/admin/users/:id/role", api.ChangeUserRole)
		admin.DELETE("/admin/users/:id", api.DeleteUser)
	}
}

// GetSession retorna el usuario y rol de la sesión actual
func (api *API) GetSession(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, models.NewUnauthorizedError("Missing session"))
		return
	}

	c.JSON(http.StatusOK, models.SessionResponse{
		UserID: userID,
		Role:   auth.RoleFromContext(c.Request.Context()),
	})
}

// Register da de alta el perfil del usuario autenticado
func (api *API) Register(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, models.NewUnauthorizedError("Missing session"))
		return
	}

	var req models.RegisterRequest
	if !api.bindJSON(c, &req, "register") {
		return
	}

	session, err := api.userService.Register(c.Request.Context(), userID, &req)
	if err != nil {
		api.respondError(c, err, "registering user")
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListCustomers busca clientes por nombre, teléfono o dirección
func (api *API) ListCustomers(c *gin.Context) {
	customers, err := api.customerService.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		api.respondError(c, err, "listing customers")
		return
	}

	c.JSON(http.StatusOK, customers)
}

// CreateCustomer crea un nuevo cliente
func (api *API) CreateCustomer(c *gin.Context) {
	var req models.CreateCustomerRequest
	if !api.bindJSON(c, &req, "create customer") {
		return
	}

	customer, err := api.customerService.Create(c.Request.Context(), &req)
	if err != nil {
		api.respondError(c, err, "creating customer")
		return
	}

	c.JSON(http.StatusCreated, customer)
}

// UpdateCustomer actualiza los datos de un cliente
func (api *API) UpdateCustomer(c *gin.Context) {
	id, ok := api.parseID(c, "customer")
	if !ok {
		return
	}

	var req models.CreateCustomerRequest
	if !api.bindJSON(c, &req, "update customer") {
		return
	}

	customer, err := api.customerService.Update(c.Request.Context(), id, &req)
	if err != nil {
		api.respondError(c, err, "updating customer")
		return
	}

	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer elimina un cliente y sus pedidos
func (api *API) DeleteCustomer(c *gin.Context) {
	id, ok := api.parseID(c, "customer")
	if !ok {
		return
	}

	if err := api.customerService.Delete(c.Request.Context(), id); err != nil {
		api.respondError(c, err, "deleting customer")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetCustomerBill obtiene la deuda pendiente de un cliente
func (api *API) GetCustomerBill(c *gin.Context) {
	id, ok := api.parseID(c, "customer")
	if !ok {
		return
	}

	bill, err := api.ledger.CustomerBill(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err, "computing bill")
		return
	}

	c.JSON(http.StatusOK, bill)
}

// SettleCustomerBill marca como pagados los pedidos regulares pendientes
func (api *API) SettleCustomerBill(c *gin.Context) {
	id, ok := api.parseID(c, "customer")
	if !ok {
		return
	}

	settled, err := api.ledger.SettleCustomerBill(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err, "settling bill")
		return
	}

	c.JSON(http.StatusOK, models.SettleResponse{
		CustomerID:   id,
		SettledCount: settled,
	})
}

// GetStatement genera el estado de cuenta en PDF
func (api *API) GetStatement(c *gin.Context) {
	id, ok := api.parseID(c, "customer")
	if !ok {
		return
	}

	statement, err := api.statementService.Generate(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err, "generating statement")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%s", statement.FileName))
	if statement.URL != "" {
		c.Header("X-Statement-URL", statement.URL)
	}
	c.Data(http.StatusOK, "application/pdf", statement.Data)
}

// AdjustContainers suma o resta envases al contador del cliente
func (api *API) AdjustContainers(c *gin.Context) {
	id, ok := api.parseID(c, "customer")
	if !ok {
		return
	}

	var req models.ContainerAdjustRequest
	if !api.bindJSON(c, &req, "adjust containers") {
		return
	}

	held, err := api.ledger.UpdateContainerCount(c.Request.Context(), id, req.Delta)
	if err != nil {
		api.respondError(c, err, "adjusting containers")
		return
	}

	c.JSON(http.StatusOK, models.ContainerResponse{CustomerID: id, ContainersHeld: held})
}

// ReturnContainers registra una devolución de envases
func (api *API) ReturnContainers(c *gin.Context) {
	id, ok := api.parseID(c, "customer")
	if !ok {
		return
	}

	var req models.ReturnRequest
	if !api.bindJSON(c, &req, "return containers") {
		return
	}

	held, err := api.ledger.ReturnContainers(c.Request.Context(), id, req)
	if err != nil {
		api.respondError(c, err, "returning containers")
		return
	}

	c.JSON(http.StatusOK, models.ContainerResponse{CustomerID: id, ContainersHeld: held})
}

// LogOrder registra una entrega
func (api *API) LogOrder(c *gin.Context) {
	var req models.LogOrderRequest
	if !api.bindJSON(c, &req, "log order") {
		return
	}

	response, err := api.ledger.LogOrder(c.Request.Context(), &req)
	if err != nil {
		api.respondError(c, err, "logging order")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListOrders obtiene los pedidos entregados en una fecha (hoy por defecto)
func (api *API) ListOrders(c *gin.Context) {
	day, err := api.reportService.ParseDate(c.Query("date"))
	if err != nil {
		api.respondError(c, err, "parsing date")
		return
	}

	orders, err := api.reportService.OrdersForDay(c.Request.Context(), day)
	if err != nil {
		api.respondError(c, err, "listing orders")
		return
	}

	c.JSON(http.StatusOK, orders)
}

// ListEventOrders obtiene pedidos event y bulk próximos o pasados
func (api *API) ListEventOrders(c *gin.Context) {
	filter := services.EventFilter(c.DefaultQuery("filter", string(services.EventFilterUpcoming)))

	orders, err := api.reportService.EventOrders(c.Request.Context(), filter)
	if err != nil {
		api.respondError(c, err, "listing event orders")
		return
	}

	c.JSON(http.StatusOK, orders)
}

// TogglePayment invierte el estado de pago de un pedido
func (api *API) TogglePayment(c *gin.Context) {
	id, ok := api.parseID(c, "order")
	if !ok {
		return
	}

	order, err := api.ledger.TogglePayment(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err, "toggling payment")
		return
	}

	c.JSON(http.StatusOK, order)
}

// GetDailySummary obtiene el resumen de unidades entregadas en el día
func (api *API) GetDailySummary(c *gin.Context) {
	day, err := api.reportService.ParseDate(c.Query("date"))
	if err != nil {
		api.respondError(c, err, "parsing date")
		return
	}

	summary, err := api.reportService.DailySummary(c.Request.Context(), day)
	if err != nil {
		api.respondError(c, err, "computing daily summary")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetReminders obtiene entregas programadas y devoluciones pendientes
func (api *API) GetReminders(c *gin.Context) {
	reminders, err := api.reportService.Reminders(c.Request.Context())
	if err != nil {
		api.respondError(c, err, "computing reminders")
		return
	}

	c.JSON(http.StatusOK, reminders)
}

// GetOutstandingBills obtiene la deuda de todos los clientes con pedidos pendientes
func (api *API) GetOutstandingBills(c *gin.Context) {
	bills, err := api.reportService.OutstandingBills(c.Request.Context())
	if err != nil {
		api.respondError(c, err, "computing outstanding bills")
		return
	}

	c.JSON(http.StatusOK, bills)
}

// ListUsers obtiene todos los usuarios con su rol
func (api *API) ListUsers(c *gin.Context) {
	users, err := api.userService.List(c.Request.Context())
	if err != nil {
		api.respondError(c, err, "listing users")
		return
	}

	c.JSON(http.StatusOK, users)
}

// ListPendingUsers obtiene los usuarios pendientes de aprobación
func (api *API) ListPendingUsers(c *gin.Context) {
	users, err := api.userService.ListPending(c.Request.Context())
	if err != nil {
		api.respondError(c, err, "listing pending users")
		return
	}

	c.JSON(http.StatusOK, users)
}

// ApproveUser asigna el primer rol a un usuario pendiente
func (api *API) ApproveUser(c *gin.Context) {
	id, ok := api.parseID(c, "user")
	if !ok {
		return
	}

	var req models.RoleRequest
	if !api.bindJSON(c, &req, "approve user") {
		return
	}

	if err := api.userService.Approve(c.Request.Context(), id, req.Role); err != nil {
		api.respondError(c, err, "approving user")
		return
	}

	c.JSON(http.StatusOK, models.SessionResponse{UserID: id, Role: req.Role})
}

// ChangeUserRole cambia el rol de un usuario aprobado
func (api *API) ChangeUserRole(c *gin.Context) {
	id, ok := api.parseID(c, "user")
	if !ok {
		return
	}

	var req models.RoleRequest
	if !api.bindJSON(c, &req, "change role") {
		return
	}

	actor, _ := auth.UserIDFromContext(c.Request.Context())
	if err := api.userService.ChangeRole(c.Request.Context(), actor, id, req.Role); err != nil {
		api.respondError(c, err, "changing role")
		return
	}

	c.JSON(http.StatusOK, models.SessionResponse{UserID: id, Role: req.Role})
}

// DeleteUser elimina el perfil y el rol de un usuario
func (api *API) DeleteUser(c *gin.Context) {
	id, ok := api.parseID(c, "user")
	if !ok {
		return
	}

	actor, _ := auth.UserIDFromContext(c.Request.Context())
	if err := api.userService.Delete(c.Request.Context(), actor, id); err != nil {
		api.respondError(c, err, "deleting user")
		return
	}

	c.Status(http.StatusNoContent)
}

// parseID parsea el parámetro :id; responde 400 si no es un UUID
func (api *API) parseID(c *gin.Context, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError(fmt.Sprintf("Invalid %s ID", entity), []models.ErrorDetail{
			{Field: "id", Issue: "Must be a valid UUID"},
		}))
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON parsea el body; responde 400 si el formato no es válido
func (api *API) bindJSON(c *gin.Context, req interface{}, name string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		api.logger.WithError(err).Debugf("Error binding %s request", name)
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid request format", []models.ErrorDetail{
			{Field: "body", Issue: err.Error()},
		}))
		return false
	}
	return true
}

// respondError traduce los errores del ledger a la respuesta HTTP correspondiente
func (api *API) respondError(c *gin.Context, err error, action string) {
	var (
		validationErr *ledger.ValidationError
		notFoundErr   *ledger.NotFoundError
		returnErr     *ledger.InvalidReturnError
		authErr       *ledger.AuthorizationError
		scheduleErr   *ledger.ScheduleError
		storeErr      *ledger.StoreError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, models.NewValidationError(validationErr.Error(), []models.ErrorDetail{
			{Field: validationErr.Field, Issue: validationErr.Message},
		}))
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, models.NewNotFoundError(notFoundErr.Error()))
	case errors.As(err, &returnErr):
		c.JSON(http.StatusConflict, models.NewInvalidReturnError(returnErr.Error()))
	case errors.As(err, &authErr):
		c.JSON(http.StatusForbidden, models.NewForbiddenError(authErr.Error()))
	case errors.As(err, &scheduleErr):
		c.JSON(http.StatusUnprocessableEntity, models.NewScheduleError(scheduleErr.Error()))
	case errors.As(err, &storeErr):
		api.logger.WithError(err).Errorf("Store error %s", action)
		c.JSON(http.StatusInternalServerError, models.NewStoreError(fmt.Sprintf("Error %s", action)))
	default:
		api.logger.WithError(err).Errorf("Error %s", action)
		c.JSON(http.StatusInternalServerError, models.NewInternalError(fmt.Sprintf("Error %s", action)))
	}
}
