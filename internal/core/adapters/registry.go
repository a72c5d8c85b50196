package adapters

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Credentials: уже расшифрованные настройки подключения (логин, ключи, склад по умолчанию...).
type Credentials map[string]any

// Constructor создаёт адаптер, привязанный к переданным учётным данным.
type Constructor func(cfg Credentials) (Adapter, error)

// Registry сопоставляет тип адаптера с конструктором. Заполняется при старте процесса.
// Кэширования нет: каждый Create возвращает новый адаптер, поэтому смена учётных данных
// вступает в силу со следующего запроса.
type Registry struct {
	constructors map[Type]Constructor
	log          *zap.Logger
	mu           sync.RWMutex
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		constructors: make(map[Type]Constructor),
		log:          log.Named("adapters"),
	}
}

func (r *Registry) Register(t Type, ctor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctor == nil {
		return fmt.Errorf("constructor is nil for adapter %q", t)
	}
	if _, err := ParseType(string(t)); err != nil {
		return err
	}
	if _, exists := r.constructors[t]; exists {
		return fmt.Errorf("adapter %q already registered", t)
	}

	r.constructors[t] = ctor
	r.log.Debug("Registered adapter", zap.String("type", string(t)))
	return nil
}

// MustRegister: для сборки реестра в main.
func (r *Registry) MustRegister(t Type, ctor Constructor) *Registry {
	if err := r.Register(t, ctor); err != nil {
		panic(err)
	}
	return r
}

// Create строит адаптер по коду типа.
func (r *Registry) Create(typeCode string, cfg Credentials) (Adapter, error) {
	t, err := ParseType(typeCode)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	ctor, ok := r.constructors[t]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownAdapterTypeError{TypeCode: typeCode}
	}

	return ctor(cfg)
}

func (r *Registry) Registered() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Type, 0, len(r.constructors))
	for _, t := range AllTypes {
		if _, ok := r.constructors[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

var validate = validator.New()

// DecodeConfig перекладывает учётные данные в типизированную структуру адаптера и валидирует её.
func DecodeConfig(cfg Credentials, dst any) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode adapter config: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode adapter config: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid adapter config: %w", err)
	}
	return nil
}
