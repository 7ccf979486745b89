package database

import (
	"context"
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jackc/pgx/v5/pgtype"
	"gorm.io/gorm/schema"

	"github.com/JokingLove/eip1559-fee-strategy/common/bigint"
)

var big10 = big.NewInt(10)

type U256Serializer struct{}

// BytesSerializer stores fixed and variable length byte types (hashes,
// addresses, call data) as BYTEA.
type BytesSerializer struct{}

type BytesInterface interface{ Bytes() []byte }
type SetBytesInterface interface{ SetBytes([]byte) }

func init() {
	schema.RegisterSerializer("u256", U256Serializer{})
	schema.RegisterSerializer("bytes", BytesSerializer{})
}

func (U256Serializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	if dbValue == nil {
		return nil
	}
	if field.FieldType != reflect.TypeOf((*big.Int)(nil)) {
		return fmt.Errorf("can only deserialize into a *big.Int: %v", field.FieldType)
	}

	numeric := new(pgtype.Numeric)
	if err := numeric.Scan(dbValue); err != nil {
		return err
	}
	if !numeric.Valid || numeric.Int == nil {
		return nil
	}

	value := new(big.Int).Set(numeric.Int)
	if numeric.Exp > 0 {
		value.Mul(value, new(big.Int).Exp(big10, big.NewInt(int64(numeric.Exp)), nil))
	} else if numeric.Exp < 0 {
		return fmt.Errorf("u256 column holds a fraction: %v", dbValue)
	}
	if value.Sign() < 0 || !bigint.Fits256(value) {
		return fmt.Errorf("deserialized number out of u256 bounds: %s", value)
	}

	field.ReflectValueOf(ctx, dst).Set(reflect.ValueOf(value))
	return nil
}

func (U256Serializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue interface{}) (interface{}, error) {
	if fieldValue == nil || (field.FieldType.Kind() == reflect.Pointer && reflect.ValueOf(fieldValue).IsNil()) {
		return nil, nil
	}
	value, ok := fieldValue.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("can only serialize a *big.Int: %T", fieldValue)
	}
	if value.Sign() < 0 || !bigint.Fits256(value) {
		return nil, fmt.Errorf("number out of u256 bounds: %s", value)
	}
	return pgtype.Numeric{Int: new(big.Int).Set(value), Valid: true}, nil
}

func (BytesSerializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	if dbValue == nil {
		return nil
	}

	var raw []byte
	switch v := dbValue.(type) {
	case []byte:
		raw = v
	case string:
		decoded, err := hexutil.Decode(v)
		if err != nil {
			return fmt.Errorf("failed to decode database value: %w", err)
		}
		raw = decoded
	default:
		return fmt.Errorf("unexpected database value type: %T", dbValue)
	}

	fieldValue := reflect.New(field.FieldType)
	if field.FieldType.Kind() == reflect.Slice {
		fieldValue.Elem().SetBytes(append([]byte(nil), raw...))
	} else {
		if field.FieldType.Kind() == reflect.Pointer {
			fieldValue = reflect.New(field.FieldType.Elem())
		}
		setter, ok := fieldValue.Interface().(SetBytesInterface)
		if !ok {
			return fmt.Errorf("field does not satisfy the SetBytes([]byte) interface: %T", fieldValue.Interface())
		}
		setter.SetBytes(raw)
		if field.FieldType.Kind() != reflect.Pointer {
			fieldValue = fieldValue.Elem()
		}
	}
	if field.FieldType.Kind() == reflect.Slice {
		fieldValue = fieldValue.Elem()
	}

	field.ReflectValueOf(ctx, dst).Set(fieldValue)
	return nil
}

func (BytesSerializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue interface{}) (interface{}, error) {
	if fieldValue == nil || (field.FieldType.Kind() == reflect.Pointer && reflect.ValueOf(fieldValue).IsNil()) {
		return nil, nil
	}
	switch v := fieldValue.(type) {
	case []byte:
		return v, nil
	case BytesInterface:
		return v.Bytes(), nil
	default:
		return nil, fmt.Errorf("field does not satisfy the Bytes() []byte interface: %T", fieldValue)
	}
}
