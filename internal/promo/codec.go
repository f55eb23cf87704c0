package promo

import (
	"encoding/json"
	"fmt"
)

// The persistence layer and the HTTP API exchange triggers and strategies as
// kind-tagged JSON envelopes. Decoding always runs the constructors again, so
// a row hand-edited into nonsense is rejected at load time instead of
// reaching the engine.

type triggerEnvelope struct {
	Kind   TriggerKind     `json:"kind"`
	Params json.RawMessage `json:"params"`
}

type strategyEnvelope struct {
	Kind   StrategyKind    `json:"kind"`
	Params json.RawMessage `json:"params"`
}

// EncodeTriggers serialises a trigger list into its envelope form.
func EncodeTriggers(triggers []Trigger) ([]byte, error) {
	envs := make([]triggerEnvelope, 0, len(triggers))
	for _, t := range triggers {
		params, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("encode trigger %s: %w", t.Kind(), err)
		}
		envs = append(envs, triggerEnvelope{Kind: t.Kind(), Params: params})
	}
	return json.Marshal(envs)
}

// DecodeTriggers parses an envelope list back into validated triggers.
func DecodeTriggers(data []byte) ([]Trigger, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var envs []triggerEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("decode triggers: %w", err)
	}
	triggers := make([]Trigger, 0, len(envs))
	for _, env := range envs {
		t, err := decodeTrigger(env)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}
	return triggers, nil
}

func decodeTrigger(env triggerEnvelope) (Trigger, error) {
	switch env.Kind {
	case TriggerTemporal:
		var t TemporalTrigger
		if err := json.Unmarshal(env.Params, &t); err != nil {
			return nil, fmt.Errorf("decode %s trigger: %w", env.Kind, err)
		}
		out, err := NewTemporalTrigger(t)
		if err != nil {
			return nil, err
		}
		return out, nil
	case TriggerRequiredContent:
		var t RequiredContentTrigger
		if err := json.Unmarshal(env.Params, &t); err != nil {
			return nil, fmt.Errorf("decode %s trigger: %w", env.Kind, err)
		}
		out, err := NewRequiredContentTrigger(t.ProductIDs)
		if err != nil {
			return nil, err
		}
		return out, nil
	case TriggerMinimumAmount:
		var t MinimumAmountTrigger
		if err := json.Unmarshal(env.Params, &t); err != nil {
			return nil, fmt.Errorf("decode %s trigger: %w", env.Kind, err)
		}
		out, err := NewMinimumAmountTrigger(t.Threshold)
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown trigger kind %q", ErrInvalidTrigger, env.Kind)
	}
}

// EncodeStrategy serialises a strategy into its envelope form.
func EncodeStrategy(s Strategy) ([]byte, error) {
	if s == nil {
		return nil, ErrNilStrategy
	}
	params, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode strategy %s: %w", s.Kind(), err)
	}
	return json.Marshal(strategyEnvelope{Kind: s.Kind(), Params: params})
}

// DecodeStrategy parses an envelope back into a validated strategy.
func DecodeStrategy(data []byte) (Strategy, error) {
	var env strategyEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode strategy: %w", err)
	}
	switch env.Kind {
	case StrategyDirectDiscount:
		var s DirectDiscount
		if err := json.Unmarshal(env.Params, &s); err != nil {
			return nil, fmt.Errorf("decode %s strategy: %w", env.Kind, err)
		}
		switch s.Mode {
		case ModePercentage:
			out, err := NewDirectPercentDiscount(s.Percent)
			if err != nil {
				return nil, err
			}
			return out, nil
		case ModeFixedAmount:
			out, err := NewDirectAmountDiscount(s.Amount)
			if err != nil {
				return nil, err
			}
			return out, nil
		default:
			return nil, fmt.Errorf("%w: unknown discount mode %q", ErrInvalidStrategy, s.Mode)
		}
	case StrategyFixedQuantity:
		var s FixedQuantity
		if err := json.Unmarshal(env.Params, &s); err != nil {
			return nil, fmt.Errorf("decode %s strategy: %w", env.Kind, err)
		}
		out, err := NewFixedQuantity(s.BuyQty, s.PayQty)
		if err != nil {
			return nil, err
		}
		return out, nil
	case StrategyConditionalCombo:
		var s ConditionalCombo
		if err := json.Unmarshal(env.Params, &s); err != nil {
			return nil, fmt.Errorf("decode %s strategy: %w", env.Kind, err)
		}
		out, err := NewConditionalCombo(s.MinTriggerQty, s.BenefitPercent)
		if err != nil {
			return nil, err
		}
		return out, nil
	case StrategyFixedPricePerQuantity:
		var s FixedPricePerQuantity
		if err := json.Unmarshal(env.Params, &s); err != nil {
			return nil, fmt.Errorf("decode %s strategy: %w", env.Kind, err)
		}
		out, err := NewFixedPricePerQuantity(s.ActivationQty, s.PackPrice)
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy kind %q", ErrInvalidStrategy, env.Kind)
	}
}
