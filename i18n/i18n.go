// Package i18n holds the user-facing notification and violation messages.
// Spanish is the default language; English is selected via Accept-Language.
package i18n

import "strings"

const (
	LangES      = "es"
	LangEN      = "en"
	DefaultLang = LangES
)

var messages = map[string]map[string]string{
	LangES: {
		// violations
		"required":             "Obligatorio",
		"invalid_email":        "Email no válido",
		"invalid_choice":       "Opción no válida",
		"out_of_range":         "Fuera de rango",
		"must_be_non_negative": "Debe ser mayor o igual que cero",
		"invalid":              "Valor no válido",
		// notifications
		"invalid_json":      "Los datos enviados no son válidos",
		"validation_failed": "Revisa los campos marcados",
		"not_found":         "No se encontró el registro",
		"load_failed":       "No se pudieron cargar los datos",
		"save_failed":       "No se pudo guardar. Inténtalo de nuevo",
		"delete_failed":     "No se pudo eliminar. Inténtalo de nuevo",
		"invalid_id":        "Identificador no válido",
		"invalid_status":    "Estado de factura no válido",
		"customer_required": "Selecciona un cliente",
		"items_required":    "Añade al menos un producto",
		"export_failed":     "No se pudo generar la exportación",
		"internal_error":    "Error interno",
		"shutting_down":     "El servidor se está deteniendo",
		// statuses
		"status_draft":   "Borrador",
		"status_sent":    "Enviada",
		"status_paid":    "Pagada",
		"status_overdue": "Vencida",
		// export headers
		"col_number":     "Número",
		"col_customer":   "Cliente",
		"col_email":      "Email",
		"col_issue_date": "Fecha emisión",
		"col_due_date":   "Fecha vencimiento",
		"col_subtotal":   "Subtotal",
		"col_tax":        "IVA",
		"col_total":      "Total",
		"col_status":     "Estado",
		"sheet_invoices": "Facturas",
	},
	LangEN: {
		"required":             "Required",
		"invalid_email":        "Invalid email",
		"invalid_choice":       "Invalid choice",
		"out_of_range":         "Out of range",
		"must_be_non_negative": "Must be zero or greater",
		"invalid":              "Invalid value",
		"invalid_json":         "The submitted data is not valid",
		"validation_failed":    "Please review the highlighted fields",
		"not_found":            "Record not found",
		"load_failed":          "Could not load data",
		"save_failed":          "Could not save. Please try again",
		"delete_failed":        "Could not delete. Please try again",
		"invalid_id":           "Invalid identifier",
		"invalid_status":       "Invalid invoice status",
		"customer_required":    "Select a customer",
		"items_required":       "Add at least one product",
		"export_failed":        "Could not build the export",
		"internal_error":       "Internal error",
		"shutting_down":        "The server is shutting down",
		"status_draft":         "Draft",
		"status_sent":          "Sent",
		"status_paid":          "Paid",
		"status_overdue":       "Overdue",
		"col_number":           "Number",
		"col_customer":         "Customer",
		"col_email":            "Email",
		"col_issue_date":       "Issue date",
		"col_due_date":         "Due date",
		"col_subtotal":         "Subtotal",
		"col_tax":              "Tax",
		"col_total":            "Total",
		"col_status":           "Status",
		"sheet_invoices":       "Invoices",
	},
}

// DetectLanguage picks the first supported language of an Accept-Language
// header, defaulting to Spanish.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		base := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if _, ok := messages[base]; ok {
			return base
		}
	}
	return DefaultLang
}

// T returns the message for code in lang, falling back to Spanish, then to the code itself.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}

// Localize translates each violation code of a field map.
func Localize(lang string, violations map[string]string) map[string]string {
	out := make(map[string]string, len(violations))
	for field, code := range violations {
		out[field] = T(lang, code)
	}
	return out
}
