package services

import (
	"fmt"
	"strings"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
)

// Plain-text reply rendering. The dialogue is single-language per tenant;
// these templates are the platform's Spanish set.

const (
	msgDisambiguation = "Hola 👋 ¿Con qué negocio querés reservar?\n\nEnviá el código del negocio (por ejemplo: *acme*) para empezar."

	msgConfirmPrompt = "Respondé *si* para confirmar o *no* para cancelar."

	msgBookingFailed = "😔 No pudimos registrar tu reserva en este momento. Respondé *si* para intentarlo de nuevo."

	msgCancelled = "Reserva cancelada. Escribí *menu* cuando quieras empezar de nuevo."

	msgAlreadyDone = "Tu reserva ya está confirmada ✅\n\nEscribí *menu* para hacer una nueva reserva."
)

func msgTenantUnavailable(name string) string {
	return fmt.Sprintf("*%s* no está disponible en este momento 😔 Intentá de nuevo más tarde.", name)
}

func msgNoServices(name string) string {
	return fmt.Sprintf("*%s* no tiene servicios disponibles por ahora. Escribí *menu* más tarde para volver a intentar.", name)
}

func msgNoDates(serviceName string) string {
	return fmt.Sprintf("Lo sentimos 😔 no hay fechas disponibles para *%s* en los próximos días.\n\nEscribí *menu* para empezar de nuevo.", serviceName)
}

func msgInvalidOption(n int) string {
	return fmt.Sprintf("Opción no válida. Respondé con un número del 1 al %d.", n)
}

func renderServiceMenu(t *models.Tenant, opts []models.ServiceOption) string {
	var b strings.Builder
	if t.Settings.Greeting != "" {
		b.WriteString(t.Settings.Greeting)
	} else {
		fmt.Fprintf(&b, "¡Hola! Bienvenido a *%s* 😊", t.Name)
	}
	b.WriteString("\n\nNuestros servicios:\n")
	for i, o := range opts {
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, o.Name, formatPrice(o.Price, t.Settings.Currency))
	}
	b.WriteString("\nRespondé con el número del servicio que querés reservar.")
	return b.String()
}

func renderDateList(serviceName string, dates []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Genial, elegiste *%s* 👌\n\nFechas disponibles:\n", serviceName)
	for i, d := range dates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d)
	}
	b.WriteString("\nRespondé con el número de la fecha.")
	return b.String()
}

func msgNoTimesRelist(date string, dates []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "No quedan horarios para el %s 😔 Elegí otra fecha:\n", date)
	for i, d := range dates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d)
	}
	b.WriteString("\nRespondé con el número de la fecha.")
	return b.String()
}

func renderTimeList(date string, times []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Horarios para el %s:\n", date)
	for i, t := range times {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}
	b.WriteString("\nRespondé con el número del horario.")
	return b.String()
}

func renderSummary(t *models.Tenant, d *models.SessionData) string {
	var b strings.Builder
	b.WriteString("Confirmá tu reserva:\n\n")
	fmt.Fprintf(&b, "📍 %s\n", t.Name)
	fmt.Fprintf(&b, "✂️ %s\n", d.SelectedService.Name)
	fmt.Fprintf(&b, "📅 %s\n", d.SelectedDate)
	fmt.Fprintf(&b, "🕐 %s\n", d.SelectedTime)
	if d.SelectedService.Price > 0 {
		fmt.Fprintf(&b, "💲 %s\n", strings.TrimPrefix(formatPrice(d.SelectedService.Price, t.Settings.Currency), " - "))
	}
	b.WriteString("\n")
	b.WriteString(msgConfirmPrompt)
	return b.String()
}

func msgBookingDone(t *models.Tenant, d *models.SessionData) string {
	return fmt.Sprintf("✅ ¡Reserva confirmada!\n\nTe esperamos el %s a las %s en *%s*.\n\nEscribí *menu* para hacer otra reserva.",
		d.SelectedDate, d.SelectedTime, t.Name)
}

func formatPrice(price float64, currency string) string {
	if price <= 0 {
		return ""
	}
	if currency == "" {
		currency = "$"
	}
	if price == float64(int64(price)) {
		return fmt.Sprintf(" - %s%.0f", currency, price)
	}
	return fmt.Sprintf(" - %s%.2f", currency, price)
}
