package ledger

import "github.com/hypernova-labs/aquatrack-service/internal/models"

// IsPrivileged indica si el rol puede ejecutar acciones administrativas
func IsPrivileged(role models.Role) bool {
	return role == models.RoleAdmin
}

// IsActive indica si el rol tiene acceso a la operación diaria (staff o admin)
func IsActive(role models.Role) bool {
	return role == models.RoleStaff || role == models.RoleAdmin
}

// CanEdit indica si el rol puede cambiar el estado de pago del pedido.
// Los pedidos bulk sólo los edita un rol privilegiado.
func CanEdit(order models.Order, role models.Role) bool {
	if order.OrderType == models.OrderTypeBulk {
		return IsPrivileged(role)
	}
	return true
}

// CanCreateBulkOrder indica si el rol puede registrar pedidos bulk
func CanCreateBulkOrder(role models.Role) bool {
	return IsPrivileged(role)
}
