// Пакет rbac — роли пользователей ScoreTeam и проверка допуска.
// Роли: admin, evaluator, viewer. Исторические имена evaluador и
// visualizador принимаются на входе и приводятся к каноническим.
package rbac

import "strings"

// Роли в порядке возрастания привилегий.
const (
	RoleViewer    = "viewer"
	RoleEvaluator = "evaluator"
	RoleAdmin     = "admin"
)

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий.
var roleWeight = map[string]int{
	RoleViewer:    1,
	RoleEvaluator: 2,
	RoleAdmin:     3,
}

// aliases — исторические имена ролей.
var aliases = map[string]string{
	"evaluador":    RoleEvaluator,
	"visualizador": RoleViewer,
	"readonly":     RoleViewer,
}

// Группы ролей для маршрутов.
var (
	// Editors — могут изменять агентов и оценки.
	Editors = []string{RoleAdmin, RoleEvaluator}
	// AdminsOnly — управление пользователями и типами оценок.
	AdminsOnly = []string{RoleAdmin}
)

// Normalize приводит роль к каноническому имени.
// Возвращает false, если роль неизвестна.
func Normalize(role string) (string, bool) {
	r := strings.ToLower(strings.TrimSpace(role))
	if alias, ok := aliases[r]; ok {
		r = alias
	}
	if _, ok := roleWeight[r]; !ok {
		return "", false
	}
	return r, true
}

// IsValidRole проверяет, является ли строка допустимой ролью (с учётом синонимов).
func IsValidRole(role string) bool {
	_, ok := Normalize(role)
	return ok
}

// Allowed проверяет, входит ли роль в список разрешённых.
// Синонимы учитываются с обеих сторон.
func Allowed(role string, allowed ...string) bool {
	r, ok := Normalize(role)
	if !ok {
		return false
	}
	for _, a := range allowed {
		if n, ok := Normalize(a); ok && n == r {
			return true
		}
	}
	return false
}

// Roles возвращает канонические роли в порядке возрастания привилегий.
func Roles() []string {
	return []string{RoleViewer, RoleEvaluator, RoleAdmin}
}
