package service

import (
	"reflect"
	"testing"

	"helpdesk-transfer/internal/transfer/model"
)

func TestBuildMappingCustomers(t *testing.T) {
	headers := []string{"Namn", "Efternamn", "E-post", "Telefon", "Stad"}
	got := BuildMapping(headers, TargetFields(model.EntityCustomers, nil), model.EntityCustomers)
	want := model.FieldMapping{
		"Namn":      "firstName",
		"Efternamn": "lastName",
		"E-post":    "email",
		"Telefon":   "phoneNumber",
		"Stad":      "city",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildMapping = %v, want %v", got, want)
	}
}

func TestBuildMappingTickets(t *testing.T) {
	defs := []model.FieldDefinition{{Name: "Färg", FieldType: model.FieldText}}
	headers := []string{"Titel", "Beskrivning", "Kundens e-post", "Förfallodatum", "Färg"}
	got := BuildMapping(headers, TargetFields(model.EntityTickets, defs), model.EntityTickets)
	want := model.FieldMapping{
		"Titel":          "title",
		"Beskrivning":    "description",
		"Kundens e-post": "customerEmail",
		"Förfallodatum":  "dueDate",
		"Färg":           "field_Färg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildMapping = %v, want %v", got, want)
	}
}

func TestBuildMappingTicketEquipmentFields(t *testing.T) {
	defs := []model.FieldDefinition{{Name: "Kommentar"}, {Name: "Skida"}, {Name: "Bindning"}, {Name: "Färg"}}
	headers := []string{"Kund e-post", "Kommentar", "Skida", "Bindning", "Färg"}
	got := BuildMapping(headers, TargetFields(model.EntityTickets, defs), model.EntityTickets)
	want := model.FieldMapping{
		"Kund e-post": "customerEmail",
		"Kommentar":   "field_Kommentar",
		"Skida":       "field_Skida",
		"Bindning":    "field_Bindning",
		"Färg":        "field_Färg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildMapping = %v, want %v", got, want)
	}
}

func TestBuildMappingIsInjective(t *testing.T) {
	got := BuildMapping([]string{"E-post", "Email", "Mail"}, TargetFields(model.EntityCustomers, nil), model.EntityCustomers)
	want := model.FieldMapping{"E-post": "email"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildMapping = %v, want %v", got, want)
	}
	seen := map[string]string{}
	for src, target := range got {
		if prev, dup := seen[target]; dup {
			t.Errorf("target %q claimed by %q and %q", target, prev, src)
		}
		seen[target] = src
	}
}

func TestBuildMappingDynamicBucket(t *testing.T) {
	got := BuildMapping([]string{"Extra info"}, TargetFields(model.EntityCustomers, nil), model.EntityCustomers)
	if got["Extra info"] != DynamicFieldsTarget {
		t.Errorf("Extra info mapped to %q", got["Extra info"])
	}
}

func TestTargetFields(t *testing.T) {
	defs := []model.FieldDefinition{{Name: "Skida"}, {Name: ""}, {Name: "Sulmått"}}
	got := TargetFields(model.EntityTickets, defs)
	tail := got[len(got)-2:]
	if !reflect.DeepEqual(tail, []string{"field_Skida", "field_Sulmått"}) {
		t.Errorf("tail = %v", tail)
	}
	if TargetFields(model.EntityKind("orders"), nil) != nil {
		t.Error("unknown kind should have no targets")
	}
}

func TestRemap(t *testing.T) {
	targets := TargetFields(model.EntityCustomers, nil)
	current := model.FieldMapping{"Namn": "firstName", "E-post": ""}
	got := Remap(current, []string{"Namn", "E-post", "Förnamn"}, targets, model.EntityCustomers)

	// Förnamn не может занять уже занятое firstName
	want := model.FieldMapping{"E-post": "email"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Remap = %v, want %v", got, want)
	}
	if current["Namn"] != "firstName" || current["E-post"] != "" {
		t.Errorf("current mapping modified: %v", current)
	}
}

func TestSuggestAlternatives(t *testing.T) {
	targets := TargetFields(model.EntityCustomers, nil)

	got := SuggestAlternatives("E-post", model.FieldMapping{}, targets, model.EntityCustomers)
	if len(got) != 1 || got[0].Field != "email" || got[0].Score != ExactMatchScore {
		t.Errorf("free email: %v", got)
	}

	got = SuggestAlternatives("E-post", model.FieldMapping{"Mejl": "email"}, targets, model.EntityCustomers)
	if len(got) != 0 {
		t.Errorf("email taken by another column, got %v", got)
	}

	got = SuggestAlternatives("E-post", model.FieldMapping{"E-post": "email"}, targets, model.EntityCustomers)
	if len(got) != 1 || got[0].Field != "email" {
		t.Errorf("own mapping should stay suggested: %v", got)
	}
}

func TestSuggestAlternativesRankedAndCapped(t *testing.T) {
	targets := []string{"emailxxx", "emailx", "emailxx", "xemail"}
	got := SuggestAlternatives("email", nil, targets, model.EntityCustomers)
	var fields []string
	for _, s := range got {
		fields = append(fields, s.Field)
	}
	want := []string{"emailx", "xemail", "emailxx"}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("suggestions = %v, want %v", fields, want)
	}
}
