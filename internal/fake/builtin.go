package fake

import (
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// builtinMethod describes one compiled-in producer backed by gofakeit.
type builtinMethod struct {
	dataType DataType
	keywords map[string]bool
	value    func(f *gofakeit.Faker, args map[string]string) (any, error)
}

func intArg(args map[string]string, key string, def int) int {
	raw, ok := args[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func noArgs() map[string]bool { return map[string]bool{} }

// builtinMethods is the fixed lookup table mapping a fake method name to its
// DataType and value producer. Methods not present here are looked up among
// the Generator's custom Producers, which report their own DataType; Value
// returns UnsupportedTypeError for a method absent from both.
var builtinMethods = map[string]builtinMethod{
	"first_name": {
		dataType: String,
		keywords: noArgs(),
		value:    func(f *gofakeit.Faker, _ map[string]string) (any, error) { return f.FirstName(), nil },
	},
	"last_name": {
		dataType: String,
		keywords: noArgs(),
		value:    func(f *gofakeit.Faker, _ map[string]string) (any, error) { return f.LastName(), nil },
	},
	"name": {
		dataType: String,
		keywords: noArgs(),
		value:    func(f *gofakeit.Faker, _ map[string]string) (any, error) { return f.Name(), nil },
	},
	"email": {
		dataType: String,
		keywords: noArgs(),
		value:    func(f *gofakeit.Faker, _ map[string]string) (any, error) { return f.Email(), nil },
	},
	"user_name": {
		dataType: String,
		keywords: noArgs(),
		value:    func(f *gofakeit.Faker, _ map[string]string) (any, error) { return f.Username(), nil },
	},
	"password": {
		dataType: String,
		keywords: map[string]bool{"length": true},
		value: func(f *gofakeit.Faker, args map[string]string) (any, error) {
			return f.Password(true, true, true, true, false, intArg(args, "length", 16)), nil
		},
	},
	"phone_number": {
		dataType: String,
		keywords: noArgs(),
		value:    func(f *gofakeit.Faker, _ map[string]string) (any, error) { return f.Phone(), nil },
	},
	"company": {
		dataType: String,
		keywords: noArgs(),
		value:    func(f *gofakeit.Faker, _ map[string]string) (any, error) { return f.Company(), nil },
	},
	"city": {
		dataType: String,
		keywords: noArgs(),
		value:    func(f *gofakeit.Faker, _ map[string]string) (any, error) { return f.City(), nil },
	},
	"country": {
		dataType: String,
		keywords: noArgs(),
		value:    func(f *gofakeit.Faker, _ map[string]string) (any, error) { return f.Country(), nil },
	},
	"street_address": {
		dataType: String,
		keywords: noArgs(),
		value:    func(f *gofakeit.Faker, _ map[string]string) (any, error) { return f.Street(), nil },
	},
	"word": {
		dataType: String,
		keywords: noArgs(),
		value:    func(f *gofakeit.Faker, _ map[string]string) (any, error) { return f.Word(), nil },
	},
	"sentence": {
		dataType: String,
		keywords: map[string]bool{"word_count": true},
		value: func(f *gofakeit.Faker, args map[string]string) (any, error) {
			return f.Sentence(intArg(args, "word_count", 8)), nil
		},
	},
	"paragraph": {
		dataType: String,
		keywords: noArgs(),
		value: func(f *gofakeit.Faker, _ map[string]string) (any, error) {
			return f.Paragraph(3, 4, 10, " "), nil
		},
	},
	"random_int": {
		dataType: Int,
		keywords: map[string]bool{"min": true, "max": true},
		value: func(f *gofakeit.Faker, args map[string]string) (any, error) {
			return f.Number(intArg(args, "min", 0), intArg(args, "max", 100)), nil
		},
	},
	"date": {
		dataType: Date,
		keywords: noArgs(),
		value:    func(f *gofakeit.Faker, _ map[string]string) (any, error) { return f.Date(), nil },
	},
	"date_between": {
		dataType: Date,
		keywords: map[string]bool{"start_date": true, "end_date": true},
		value: func(f *gofakeit.Faker, args map[string]string) (any, error) {
			start := parseDateArg(args["start_date"], time.Now().AddDate(-10, 0, 0))
			end := parseDateArg(args["end_date"], time.Now())
			return f.DateRange(start, end), nil
		},
	},
	"date_time_this_year": {
		dataType: DateTime,
		keywords: noArgs(),
		value: func(f *gofakeit.Faker, _ map[string]string) (any, error) {
			now := time.Now()
			return f.DateRange(time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC), now), nil
		},
	},
	"date_time_this_decade": {
		dataType: DateTime,
		keywords: noArgs(),
		value: func(f *gofakeit.Faker, _ map[string]string) (any, error) {
			return f.DateRange(time.Now().AddDate(-10, 0, 0), time.Now()), nil
		},
	},
	"date_time_this_century": {
		dataType: DateTime,
		keywords: noArgs(),
		value: func(f *gofakeit.Faker, _ map[string]string) (any, error) {
			return f.DateRange(time.Now().AddDate(-100, 0, 0), time.Now()), nil
		},
	},
	"future_date": {
		dataType: Date,
		keywords: noArgs(),
		value:    func(f *gofakeit.Faker, _ map[string]string) (any, error) { return f.FutureDate(), nil },
	},
	"past_date": {
		dataType: Date,
		keywords: noArgs(),
		value:    func(f *gofakeit.Faker, _ map[string]string) (any, error) { return f.PastDate(), nil },
	},
}

func parseDateArg(raw string, def time.Time) time.Time {
	if raw == "" {
		return def
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return def
	}
	return t
}
