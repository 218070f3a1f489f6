package anonymize

import "regexp"

const (
	PlaceholderInvoice      = "[ANON_INVOICE_NUMBER]"
	PlaceholderContract     = "[ANON_CONTRACT_NUMBER]"
	PlaceholderProtocol     = "[ANON_PROTOCOL_NUMBER]"
	PlaceholderPassport     = "[ANON_PASSPORT_ID]"
	PlaceholderIDCard       = "[ANON_ID_CARD]"
	PlaceholderDocumentID   = "[ANON_DOCUMENT_ID]"
	PlaceholderDocumentDate = "[ANON_DOCUMENT_ID_DATE]"
	PlaceholderIdentifier   = "[ANON_IDENTIFIER]"
	PlaceholderContact      = "[ANON_CONTACT]"
	PlaceholderHospital     = "[ANON_HOSPITAL]"
	PlaceholderEmail        = "[ANON_EMAIL]"
	PlaceholderAddress      = "[ANON_ADDRESS]"
	PlaceholderZIP          = "[ANON_ZIP]"
	PlaceholderPersonName   = "[ANON_PERSON_NAME]"
	PlaceholderEGN          = "[ANON_EGN]"
	PlaceholderPhone        = "[ANON_PHONE]"
	PlaceholderDate         = "[ANON_DATE]"
)

// Priority bands. Document numbers and institution names must be labelled
// before the generic digit and date rules can consume them.
const (
	PriorityDocument = 10
	PriorityRegistry = 20
	PriorityLocation = 30
	PriorityPerson   = 40
	PriorityGeneric  = 50
)

const hospitals = `УМБАЛ|МБАЛ|ДКЦ|МЦ|СБАЛ|КОЦ|ДПБ|ЦПЗ|РЗИ|НЦЗПБ|ВМА|МВР-МБЛ|Токуда|Пирогов|Аджибадем|Софиямед|Сити Клиник|Анадолу|Сердика|Вита|Щерев|Майчин дом|` +
	`Първа градска|Втора градска|Трета градска|Четвърта градска|Пета градска|Шеста градска|Седма градска|Осма градска|Девета градска|Десета градска`

const streetTypes = `ул\.|улица|бул\.|булевард|пл\.|площад|кв\.|квартал|ж\.\s?к\.|жилищен комплекс`

// DefaultRules is the stock Bulgarian/English rule set.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        "invoice",
			Pattern:     regexp.MustCompile(`(?i)(?:фактура|инв\.|invoice)\s*(?:№|no\.?|#)\s*\d+`),
			Placeholder: PlaceholderInvoice,
			Priority:    PriorityDocument,
		},
		{
			Name:        "contract",
			Pattern:     regexp.MustCompile(`(?i)договор\s*№\s*\d+`),
			Placeholder: PlaceholderContract,
			Priority:    PriorityDocument,
		},
		{
			Name:        "protocol",
			Pattern:     regexp.MustCompile(`(?i)протокол\s*№\s*\d+`),
			Placeholder: PlaceholderProtocol,
			Priority:    PriorityDocument,
		},
		{
			Name:        "passport",
			Pattern:     regexp.MustCompile(`(?i)паспорт\s*№\s*(?:[\p{L}\d]+\s+)?\d+`),
			Placeholder: PlaceholderPassport,
			Priority:    PriorityDocument,
		},
		{
			Name:        "id_card",
			Pattern:     regexp.MustCompile(`(?i)лична\s*карта\s*№\s*(?:[\p{L}\d]+\s+)?\d+`),
			Placeholder: PlaceholderIDCard,
			Priority:    PriorityDocument,
		},
		{
			Name:        "document_series",
			Pattern:     regexp.MustCompile(`(?i)серия\s+[\p{L}\d]+\s+№\s*\d+`),
			Placeholder: PlaceholderDocumentID,
			Priority:    PriorityDocument,
		},
		{
			Name:        "document_number_date",
			Pattern:     regexp.MustCompile(`(?i)№\s*\d+\s*(?:от|на|за)\s*\d{2}\.\d{2}\.\d{4}`),
			Placeholder: PlaceholderDocumentDate,
			Priority:    PriorityDocument,
		},
		{
			Name:        "identifier",
			Pattern:     regexp.MustCompile(`(?i)(?:УИН|ИН|ЗКН|ПК|ЕИК|РЗОК)\s*:\s*\d+`),
			Placeholder: PlaceholderIdentifier,
			Priority:    PriorityRegistry,
		},
		{
			Name:        "contact",
			Pattern:     regexp.MustCompile(`(?i)(?:тел\.|телефон|факс|tel\.|phone|fax)\s*:\s*\+?\d[\d \-]*\d`),
			Placeholder: PlaceholderContact,
			Priority:    PriorityRegistry,
		},
		{
			Name:        "hospital",
			Pattern:     regexp.MustCompile(`(?i)(?:` + hospitals + `)`),
			Placeholder: PlaceholderHospital,
			Priority:    PriorityRegistry,
		},
		{
			Name:        "email",
			Pattern:     regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
			Placeholder: PlaceholderEmail,
			Priority:    PriorityRegistry,
		},
		{
			Name: "street_address",
			Pattern: regexp.MustCompile(`(?i)(?:` + streetTypes + `)\s*["„]?[\p{L}\d .\-"“]{1,40}?\s*№?\s*\d{1,4}[\p{L}]?` +
				`(?:\s*,\s*(?:бл\.|блок|вх\.|ет\.|ап\.)\s*[\p{L}\d]{1,4})*`),
			Placeholder: PlaceholderAddress,
			Priority:    PriorityLocation,
		},
		{
			// a bare four digit number is far more often a lab value than a
			// postal code, so a context word is required
			Name:        "postal_code",
			Pattern:     regexp.MustCompile(`(?i)(?:п\.\s?к\.|пощенски код|гр\.|град)\s*:?\s*\d{4}`),
			Placeholder: PlaceholderZIP,
			Priority:    PriorityLocation,
		},
		{
			Name: "person_name",
			Pattern: regexp.MustCompile(`((?i:д-р|доктор|проф\.|професор|доц\.|доцент|асистент)\s+)?` +
				`([А-Я][а-я]+(?:\s+[А-Я][а-я]+){1,2})` +
				`(\s*(?:(?i:на\s+\d{1,3}\s*години|мъж|жена|дете|пациент)|ЕГН|ЛНЧ|\d{10,}))`),
			Placeholder: PlaceholderPersonName,
			Priority:    PriorityPerson,
			Replace: func(text string, loc []int) string {
				if group(text, loc, 1) != "" {
					// doctors are kept: the record needs them
					return text[loc[0]:loc[1]]
				}
				return PlaceholderPersonName + group(text, loc, 3)
			},
		},
		{
			Name:        "egn",
			Pattern:     regexp.MustCompile(`\d{10}`),
			Placeholder: PlaceholderEGN,
			Priority:    PriorityPerson,
		},
		{
			Name:        "phone",
			Pattern:     regexp.MustCompile(`\+?\d{10,14}|(?:\+359|0)[\s\-]?[2-9]\d{1,2}(?:[\s\-]?\d{2,3}){2,3}`),
			Placeholder: PlaceholderPhone,
			Priority:    PriorityGeneric,
		},
		{
			Name:        "date",
			Pattern:     regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}|\d{2}[-/]\d{2}[-/]\d{4}|\d{4}[-.]\d{2}[-.]\d{2}`),
			Placeholder: PlaceholderDate,
			Priority:    PriorityGeneric,
		},
	}
}

// Default returns an Anonymizer over DefaultRules.
func Default() *Anonymizer {
	return New(DefaultRules()...)
}
