package rule

import (
	"reflect"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"huerta/internal/service/promotion/domain"
)

// CELRuleEngine 是 domain.RuleEngine 接口的 CEL 实现。
// 可用变量：subtotal (double)、item_count (int)、code (string)、now (timestamp)。
type CELRuleEngine struct {
	env      *cel.Env
	programs sync.Map // condition -> cel.Program
}

// NewCELRuleEngine 创建规则引擎，声明促销条件可以引用的变量
func NewCELRuleEngine() (*CELRuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("subtotal", cel.DoubleType),
		cel.Variable("item_count", cel.IntType),
		cel.Variable("code", cel.StringType),
		cel.Variable("now", cel.TimestampType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cel env")
	}
	return &CELRuleEngine{env: env}, nil
}

// Compile 检查表达式能否编译且结果为 bool
func (e *CELRuleEngine) Compile(condition string) error {
	_, err := e.program(condition)
	return err
}

// Evaluate 实现了 domain.RuleEngine 接口，空条件视为满足。
func (e *CELRuleEngine) Evaluate(condition string, fact domain.Fact) (bool, error) {
	if condition == "" {
		return true, nil
	}
	prg, err := e.program(condition)
	if err != nil {
		return false, err
	}
	subtotal, _ := fact.Subtotal.Float64()
	out, _, err := prg.Eval(map[string]any{
		"subtotal":   subtotal,
		"item_count": int64(fact.ItemCount),
		"code":       fact.Code,
		"now":        fact.Now,
	})
	if err != nil {
		return false, errors.Wrapf(err, "evaluate condition %q", condition)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, errors.Errorf("condition %q did not produce a bool", condition)
	}
	return ok, nil
}

func (e *CELRuleEngine) program(condition string) (cel.Program, error) {
	if cached, ok := e.programs.Load(condition); ok {
		return cached.(cel.Program), nil
	}
	ast, iss := e.env.Compile(condition)
	if iss != nil && iss.Err() != nil {
		return nil, errors.Wrapf(iss.Err(), "compile condition %q", condition)
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, errors.Errorf("condition %q must evaluate to bool, got %v", condition, ast.OutputType())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(err, "build program for %q", condition)
	}
	e.programs.Store(condition, prg)
	return prg, nil
}
