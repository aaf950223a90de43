package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"opcalcd/pkg/types"
)

// Catalog is the static operation namespace: category -> operation names,
// plus optional-parameter metadata per operation. Built once at process
// start and never mutated afterwards.
type Catalog struct {
	Categories map[string][]string        `json:"categories" yaml:"categories" toml:"categories"`
	Params     map[string]types.ParamInfo `json:"params" yaml:"params" toml:"params"`

	names map[string]string // operation -> category
}

// Default returns the built-in catalog matching the accelerator's
// elementwise operation namespace.
func Default() *Catalog {
	c := &Catalog{
		Categories: map[string][]string{
			"Pointwise Unary": {
				"abs", "acos", "acosh", "asin", "asinh", "atan", "atanh",
				"cbrt", "ceil", "celu", "clamp", "clip", "clone", "cos", "cosh",
				"deg2rad", "elu", "eqz", "erf", "erfc", "erfinv", "exp", "exp2", "expm1",
				"floor", "frac", "gelu", "gez", "gtz", "hardsigmoid", "hardswish", "hardtanh",
				"heaviside", "i0", "identity", "isfinite", "isinf", "isnan", "isneginf", "isposinf",
				"leaky_relu", "lez", "lgamma", "log", "log10", "log1p", "log2", "log_sigmoid",
				"logical_not", "logit", "ltz", "mish", "neg", "nez",
				"prelu", "rad2deg", "reciprocal", "relu", "relu6", "round", "rsqrt",
				"selu", "sigmoid", "sigmoid_accurate", "sign", "signbit", "silu", "sin", "sinh",
				"softplus", "softshrink", "softsign", "sqrt", "square",
				"swish", "tan", "tanh", "tanhshrink", "tril", "triu", "trunc",
			},
			"Pointwise Binary": {
				"add", "addalpha", "subalpha", "mul", "multiply", "subtract", "div", "divide", "div_no_nan",
				"floor_div", "remainder", "fmod", "gcd", "lcm",
				"logical_and", "logical_or", "logical_xor",
				"bitwise_and", "bitwise_or", "bitwise_xor",
				"logaddexp", "logaddexp2", "hypot", "xlogy", "squared_difference",
				"gt", "lt", "ge", "le", "eq", "ne", "isclose",
				"maximum", "minimum", "pow", "atan2",
			},
			"Pointwise Ternary": {
				"addcdiv", "addcmul", "mac", "where", "lerp",
			},
		},
		Params: map[string]types.ParamInfo{
			"addalpha": {ParamName: "alpha", Default: 1.0, Description: "Scalar multiplier for second input"},
			"subalpha": {ParamName: "alpha", Default: 1.0, Description: "Scalar multiplier for second input"},
			"addcmul":  {ParamName: "value", Default: 1.0, Description: "Scalar multiplier for product"},
			"addcdiv":  {ParamName: "value", Default: 1.0, Description: "Scalar multiplier for division"},
			"elu":      {ParamName: "alpha", Default: 1.0, Description: "Alpha value for ELU activation"},
			"threshold": {
				ParamName: "threshold", Default: 0.0, Description: "Threshold value",
				HasSecondParam: true, SecondParamName: "value", SecondParamDefault: 0.0,
				SecondParamDescription: "Replacement value",
			},
			"heaviside": {ParamName: "value", Default: 0.0, Description: "Value when input is zero"},
			"prelu":     {ParamName: "weight", Default: 0.25, Description: "Negative slope coefficient"},
		},
	}
	c.index()
	return c
}

// Load reads a catalog override file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (*Catalog, error) {
	if path == "" {
		return nil, fmt.Errorf("empty catalog path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Catalog
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported catalog extension: %s", ext)
	}
	if len(c.Categories) == 0 {
		return nil, fmt.Errorf("catalog %s declares no categories", path)
	}
	c.index()
	return &c, nil
}

func (c *Catalog) index() {
	c.names = make(map[string]string)
	for cat, ops := range c.Categories {
		for _, op := range ops {
			c.names[op] = cat
		}
	}
	// Param-only operations (threshold) are dispatchable too.
	for op := range c.Params {
		if _, ok := c.names[op]; !ok {
			c.names[op] = "Pointwise Unary"
		}
	}
}

// Contains reports whether name is a catalogued operation.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.names[name]
	return ok
}

// Category returns the category an operation belongs to.
func (c *Catalog) Category(name string) (string, bool) {
	cat, ok := c.names[name]
	return cat, ok
}

// ParamsFor returns optional-parameter metadata for an operation.
func (c *Catalog) ParamsFor(name string) (types.ParamInfo, bool) {
	p, ok := c.Params[name]
	return p, ok
}

// Operations returns the category map. Callers must not mutate it.
func (c *Catalog) Operations() map[string][]string { return c.Categories }

// ParamTable returns the optional-parameter map. Callers must not mutate it.
func (c *Catalog) ParamTable() map[string]types.ParamInfo { return c.Params }
