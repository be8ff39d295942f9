package alerting

import (
	"fmt"
	"strings"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
)

// ProductToken is the per-product marker embedded in alert notification messages.
func ProductToken(productID uint) string {
	return fmt.Sprintf("[PRODUCT:%d]", productID)
}

func triggerTitle(alert *entities.Alert, product *entities.Product) string {
	return fmt.Sprintf("Alerte: %s (Produit #%d)", alert.Name, product.ID)
}

func resolvedTitle(alert *entities.Alert, product *entities.Product) string {
	return fmt.Sprintf("Alerte résolue: %s (Produit #%d)", alert.Name, product.ID)
}

func emailSubject(alert *entities.Alert) string {
	return fmt.Sprintf("Alerte déclenchée: %s", alert.Name)
}

// buildTriggerMessage renders the body shared by the in-app notification and
// every outbound channel.
func buildTriggerMessage(alert *entities.Alert, product *entities.Product, field Field, current, target string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Bonjour,\n\n", ProductToken(product.ID))
	fmt.Fprintf(&b, "⚠️ ALERTE STOCK: %s\n\n", alert.Name)
	fmt.Fprintf(&b, "Produit : %s (%s)\n", product.Name, product.SKU)
	fmt.Fprintf(&b, "Valeur actuelle (%s) : %s\n", field, current)
	fmt.Fprintf(&b, "Seuil (%s) : %s\n\n", comparandLabel(alert), target)
	b.WriteString("Actions recommandées :\n")
	fmt.Fprintf(&b, "• Remplir le stock du produit %s\n", product.Name)
	b.WriteString("• Contactez votre fournisseur pour une commande d'urgence\n")
	b.WriteString("• Vérifiez les niveaux de stock régulièrement\n\n")
	b.WriteString("Cordialement,\nSmartAlerte")
	return b.String()
}

func buildResolvedMessage(alert *entities.Alert, product *entities.Product) string {
	return fmt.Sprintf("%s %s Condition résolue pour le produit %s (%s) sur l'alerte %s.",
		ResolutionMarker, ProductToken(product.ID), product.Name, product.SKU, alert.Name)
}

func comparandLabel(alert *entities.Alert) string {
	if f, ok := ResolveCompareTo(alert.CompareTo); ok {
		return f.String()
	}
	return CompareToValue
}

var conditionLabels = map[string]string{
	ConditionThreshold: "Seuil",
	ConditionAbsence:   "Absence de données",
	ConditionAnomaly:   "Détection d'anomalie",
	ConditionTrend:     "Tendance",
}

var severityLabels = map[string]string{
	SeverityCritical: "Critique",
	SeverityHigh:     "Haute",
	SeverityMedium:   "Moyenne",
	SeverityLow:      "Basse",
}

func label(labels map[string]string, key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return key
}

const creationSubject = "Alerte créée avec succès"

func buildCreationMessage(alert *entities.Alert, owner *entities.User) string {
	status := "Inactive"
	if alert.IsActive {
		status = "Active"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour %s,\n\n", owner.Username)
	b.WriteString("Votre alerte a été créée avec succès !\n\n")
	b.WriteString("Détails de l'alerte :\n")
	fmt.Fprintf(&b, "- Nom : %s\n", alert.Name)
	fmt.Fprintf(&b, "- Module : %s\n", alert.Module)
	fmt.Fprintf(&b, "- Type de condition : %s\n", label(conditionLabels, alert.ConditionType))
	fmt.Fprintf(&b, "- Niveau de sévérité : %s\n", label(severityLabels, alert.Severity))
	fmt.Fprintf(&b, "- Statut : %s\n\n", status)
	b.WriteString("Vous recevrez des notifications selon la configuration de votre alerte.\n\n")
	b.WriteString("Cordialement,\nSmartAlerte")
	return b.String()
}
