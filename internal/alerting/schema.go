package alerting

// Schema is the catalog of values an alert form can offer.
type Schema struct {
	Modules        []OptionSchema        `json:"modules"`
	Severities     []OptionSchema        `json:"severities"`
	ConditionTypes []ConditionTypeSchema `json:"conditionTypes"`
	Fields         []FieldSchema         `json:"fields"`
	CompareTo      []OptionSchema        `json:"compareTo"`
	Operators      []OptionSchema        `json:"operators"`
	Schedules      []ScheduleSchema      `json:"schedules"`
	Channels       []OptionSchema        `json:"channels"`
}

// OptionSchema is a selectable value and its display label.
type OptionSchema struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// ConditionTypeSchema flags whether the engine can evaluate the type yet.
type ConditionTypeSchema struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Evaluable bool   `json:"evaluable"`
}

// FieldSchema describes a readable product field.
type FieldSchema struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type"` // "integer" or "decimal"
}

// ScheduleSchema carries the repeat interval in seconds.
type ScheduleSchema struct {
	Name            string `json:"name"`
	Label           string `json:"label"`
	IntervalSeconds int64  `json:"intervalSeconds"`
}

var fieldLabels = map[Field]string{
	FieldQuantity:    "Quantité",
	FieldMinQuantity: "Stock minimum",
	FieldMaxQuantity: "Stock maximum",
	FieldPrice:       "Prix",
}

// GetSchema returns the alert catalog for clients.
func GetSchema() Schema {
	s := Schema{
		Modules: []OptionSchema{
			{Name: ModuleStock, Label: "Stock"},
			{Name: ModuleCRM, Label: "CRM"},
			{Name: ModuleFacturation, Label: "Facturation"},
			{Name: ModuleGMAO, Label: "GMAO"},
			{Name: ModuleGPAO, Label: "GPAO"},
			{Name: ModuleRH, Label: "Ressources humaines"},
		},
		Severities: []OptionSchema{
			{Name: SeverityCritical, Label: "Critique"},
			{Name: SeverityHigh, Label: "Haute"},
			{Name: SeverityMedium, Label: "Moyenne"},
			{Name: SeverityLow, Label: "Basse"},
		},
		CompareTo: []OptionSchema{
			{Name: CompareToValue, Label: "Valeur fixe"},
			{Name: CompareToMinStock, Label: "Stock minimum"},
		},
		Operators: []OptionSchema{
			{Name: OperatorGreaterThan, Label: "supérieur à"},
			{Name: OperatorLessThan, Label: "inférieur à"},
			{Name: OperatorEqualTo, Label: "égal à"},
			{Name: OperatorNotEqual, Label: "différent de"},
			{Name: OperatorGreaterEqual, Label: "supérieur ou égal à"},
			{Name: OperatorLessEqual, Label: "inférieur ou égal à"},
		},
		Channels: []OptionSchema{
			{Name: ChannelEmail, Label: "Email"},
			{Name: ChannelTelegram, Label: "Telegram"},
			{Name: ChannelMQTT, Label: "MQTT"},
		},
	}

	for _, ct := range []struct{ name, label string }{
		{ConditionThreshold, "Seuil"},
		{ConditionAbsence, "Absence"},
		{ConditionAnomaly, "Anomalie"},
		{ConditionTrend, "Tendance"},
	} {
		s.ConditionTypes = append(s.ConditionTypes, ConditionTypeSchema{
			Name: ct.name, Label: ct.label, Evaluable: IsEvaluable(ct.name),
		})
	}

	for _, f := range SupportedFields() {
		typ := "integer"
		if f == FieldPrice {
			typ = "decimal"
		}
		s.Fields = append(s.Fields, FieldSchema{Name: f.String(), Label: fieldLabels[f], Type: typ})
		// Any field can also serve as the comparand.
		if f != FieldMinQuantity {
			s.CompareTo = append(s.CompareTo, OptionSchema{Name: f.String(), Label: fieldLabels[f]})
		}
	}

	for _, sc := range []struct{ name, label string }{
		{ScheduleImmediate, "Immédiat"},
		{ScheduleHourly, "Toutes les heures"},
		{ScheduleDaily, "Quotidien"},
		{ScheduleWeekly, "Hebdomadaire"},
		{ScheduleMonthly, "Mensuel"},
	} {
		s.Schedules = append(s.Schedules, ScheduleSchema{
			Name:            sc.name,
			Label:           sc.label,
			IntervalSeconds: int64(ScheduleInterval(sc.name).Seconds()),
		})
	}
	return s
}
