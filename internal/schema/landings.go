package schema

import "github.com/peskas/gateway/internal/domain"

// Landings describes the fish landings dataset: one wide record per catch
// entry carrying trip-level and catch-level attributes. Field definitions
// follow FAIR data practice and reference the AQFO ontology and the FAO
// ASFIS / GAUL catalogs where a formal definition exists.
func Landings() *domain.DatasetDescriptor {
	return &domain.DatasetDescriptor{
		Name:        "landings",
		Endpoint:    "landings",
		Description: "Fish landing records with catch and trip information",
		DateColumn:  "landing_date",
		Fields: []domain.Field{
			{
				Name:        "survey_id",
				Description: "Unique identifier for the survey from which this record was collected",
				Kind:        domain.FieldString,
				Examples:    []string{"survey_1", "survey_001"},
			},
			{
				Name:        "trip_id",
				Description: "Unique identifier for the fishing trip",
				Kind:        domain.FieldString,
				Examples:    []string{"trip_1", "trip_001"},
			},
			{
				Name:        "landing_date",
				Description: "Date when the catch was landed (brought to shore)",
				Kind:        domain.FieldDate,
				Unit:        "ISO 8601 date (YYYY-MM-DD)",
				Examples:    []string{"2025-02-19", "2024-02-19"},
			},
			{
				Name:         "gaul_1_code",
				Description:  "GAUL (Global Administrative Unit Layers) level 1 administrative code: states, provinces, departments and equivalent",
				Kind:         domain.FieldString,
				Examples:     []string{"1696", "1697"},
				ReferenceURL: "https://data.apps.fao.org/catalog/dataset/34f97afc-6218-459a-971d-5af1162d318a",
			},
			{
				Name:         "gaul_1_name",
				Description:  "Human-readable name of the GAUL level 1 administrative unit",
				Kind:         domain.FieldString,
				Examples:     []string{"Unguja North", "Pemba North"},
				ReferenceURL: "https://data.apps.fao.org/catalog/dataset/34f97afc-6218-459a-971d-5af1162d318a",
			},
			{
				Name:         "gaul_2_code",
				Description:  "GAUL level 2 administrative code: districts and equivalent",
				Kind:         domain.FieldString,
				Examples:     []string{"16961", "16971"},
				ReferenceURL: "https://data.apps.fao.org/catalog/dataset/60b23906-f21a-49ef-8424-f3645e70264e",
			},
			{
				Name:         "gaul_2_name",
				Description:  "Human-readable name of the GAUL level 2 administrative unit",
				Kind:         domain.FieldString,
				Examples:     []string{"District A", "District B"},
				ReferenceURL: "https://data.apps.fao.org/catalog/dataset/60b23906-f21a-49ef-8424-f3645e70264e",
			},
			{
				Name:        "n_fishers",
				Description: "Total number of people actively fishing on the trip",
				Kind:        domain.FieldInt,
				Examples:    []string{"1", "2", "5"},
				OntologyURL: "http://w3id.org/aqfo/aqfo_00000022",
			},
			{
				Name:        "trip_duration_hrs",
				Description: "Duration of fishing between departure and return",
				Kind:        domain.FieldFloat,
				Unit:        "hours",
				Examples:    []string{"4.5", "8.5", "12.0"},
				OntologyURL: "http://w3id.org/aqfo/aqfo_00002011",
			},
			{
				Name:           "gear",
				Description:    "Tool or method used to catch fish",
				Kind:           domain.FieldString,
				PossibleValues: []string{"hand_line", "net", "trap", "spear", "longline", "trawl"},
				Examples:       []string{"hand_line", "net", "trap"},
				OntologyURL:    "http://w3id.org/aqfo/aqfo_00002220",
			},
			{
				Name:           "vessel_type",
				Description:    "Water vehicle operating above or under the water surface, with or without an engine",
				Kind:           domain.FieldString,
				PossibleValues: []string{"outrigger", "dhow", "canoe"},
				Examples:       []string{"outrigger", "dhow", "canoe"},
				OntologyURL:    "http://w3id.org/aqfo/aqfo_00001013",
			},
			{
				Name:           "catch_habitat",
				Description:    "Habitat the catch was taken from",
				Kind:           domain.FieldString,
				PossibleValues: []string{"reef", "pelagic", "demersal", "coastal", "offshore"},
				Examples:       []string{"reef", "pelagic"},
				OntologyURL:    "http://w3id.org/aqfo/aqfo_00000023",
			},
			{
				Name:           "catch_outcome",
				Description:    "Binary indicator of whether the trip resulted in any catch: 1 for at least one recorded catch, 0 for none",
				Kind:           domain.FieldInt,
				PossibleValues: []string{"0", "1"},
				Examples:       []string{"1", "0"},
			},
			{
				Name:        "n_catch",
				Description: "Number of distinct catch records for the trip; a record is a unique combination of taxon and length class",
				Kind:        domain.FieldInt,
				Examples:    []string{"0", "1", "3", "10"},
			},
			{
				Name:           "catch_taxon",
				Description:    "3-alpha code identifying the species or taxonomic group per the FAO ASFIS list",
				Kind:           domain.FieldString,
				PossibleValues: []string{"MZZ", "SKJ", "IAX", "TUN", "YFT", "BET"},
				Examples:       []string{"MZZ", "SKJ"},
				ReferenceURL:   "https://www.fao.org/fishery/en/collection/asfis",
			},
			{
				Name:        "length_cm",
				Description: "Length class of the catch record; fish above one meter carry the measured length instead of a range label",
				Kind:        domain.FieldFloat,
				Unit:        "cm",
				Examples:    []string{"10.0", "30.0", "110.0"},
				OntologyURL: "http://w3id.org/aqfo/aqfo_00002073",
			},
			{
				Name:        "catch_kg",
				Description: "Weight of the catch in kilograms",
				Kind:        domain.FieldFloat,
				Unit:        "kg",
				Examples:    []string{"15.5", "45.2", "120.0"},
			},
			{
				Name:        "catch_price",
				Description: "Price of the catch in local currency; the currency unit depends on the country",
				Kind:        domain.FieldFloat,
				Unit:        "local_currency",
				Examples:    []string{"30000", "50000"},
				OntologyURL: "http://w3id.org/aqfo/aqfo_00002015",
			},
		},
		Scopes: map[string][]string{
			"trip_info": {
				"survey_id",
				"trip_id",
				"landing_date",
				"gaul_1_code",
				"gaul_1_name",
				"gaul_2_code",
				"gaul_2_name",
				"n_fishers",
				"trip_duration_hrs",
				"gear",
				"vessel_type",
				"catch_habitat",
				"catch_outcome",
			},
			"catch_info": {
				"survey_id",
				"trip_id",
				"catch_taxon",
				"length_cm",
				"catch_kg",
				"catch_price",
			},
		},
	}
}
