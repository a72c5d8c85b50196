package adapters

// Type: код поставщика или маркетплейса. Набор закрыт: новые значения добавляются
// сюда и в AllTypes, а конструктор регистрируется при старте.
type Type string

const (
	TypeRS24        Type = "rs24"
	TypeOzon        Type = "ozon"
	TypeWildberries Type = "wildberries"
	TypeYandex      Type = "yandex"
)

type Kind int

const (
	KindSupplier Kind = iota + 1
	KindMarketplace
)

var AllTypes = []Type{TypeRS24, TypeOzon, TypeWildberries, TypeYandex}

func (t Type) Kind() Kind {
	switch t {
	case TypeRS24:
		return KindSupplier
	default:
		return KindMarketplace
	}
}

func (t Type) String() string {
	return string(t)
}

// ParseType проверяет код типа.
func ParseType(code string) (Type, error) {
	for _, t := range AllTypes {
		if string(t) == code {
			return t, nil
		}
	}
	return "", &UnknownAdapterTypeError{TypeCode: code}
}
