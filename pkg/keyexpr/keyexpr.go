// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

// Package keyexpr converts between ROS2 names and overlay key expressions.
//
// A key expression is a '/'-separated list of non-empty chunks with no
// leading or trailing '/'. The bridge namespace is stripped when a ROS2 name
// goes out to the overlay and put back when a key expression comes in, so
// that bridges in different namespaces share routes.
package keyexpr

import (
	"fmt"
	"strings"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
)

const RootNamespace = "/"

// Converter implements core.NameResolver for one bridge namespace.
type Converter struct {
	namespace string
}

var _ core.NameResolver = Converter{}

func NewConverter(namespace string) Converter {
	if namespace == "" {
		namespace = RootNamespace
	}
	return Converter{namespace: namespace}
}

func (c Converter) Namespace() string {
	if c.namespace == "" {
		return RootNamespace
	}
	return c.namespace
}

// KeyExpr converts a fully qualified ROS2 name into a route key expression.
func (c Converter) KeyExpr(ros2Name string) (string, error) {
	if !strings.HasPrefix(ros2Name, "/") {
		return "", fmt.Errorf("%w: ROS2 name %q is not absolute", core.ErrInvalidKeyExpr, ros2Name)
	}
	ns := c.Namespace()
	ke := ros2Name[1:]
	if ns != RootNamespace {
		if rest, ok := strings.CutPrefix(ros2Name, ns+"/"); ok {
			ke = rest
		}
	}
	if err := Validate(ke); err != nil {
		return "", err
	}
	return ke, nil
}

// Ros2Name converts a route key expression back into a ROS2 name qualified
// with the bridge namespace. Invalid key expressions fail with
// core.ErrUnresolvable.
func (c Converter) Ros2Name(keyExpr string) (string, error) {
	if err := Validate(keyExpr); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrUnresolvable, err)
	}
	ns := c.Namespace()
	if ns == RootNamespace {
		return "/" + keyExpr, nil
	}
	return ns + "/" + keyExpr, nil
}

// Validate checks that s is a concrete key expression: no wildcards, no
// empty chunks and none of the characters reserved by the overlay or by MQTT
// topic filters.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty", core.ErrInvalidKeyExpr)
	}
	if strings.ContainsAny(s, "$#?+") {
		return fmt.Errorf("%w: %q contains a reserved character", core.ErrInvalidKeyExpr, s)
	}
	for _, chunk := range strings.Split(s, "/") {
		switch chunk {
		case "":
			return fmt.Errorf("%w: %q has an empty chunk", core.ErrInvalidKeyExpr, s)
		case "*", "**":
			return fmt.Errorf("%w: %q contains a wildcard", core.ErrInvalidKeyExpr, s)
		}
		if strings.Contains(chunk, "*") {
			return fmt.Errorf("%w: %q contains a wildcard", core.ErrInvalidKeyExpr, s)
		}
	}
	return nil
}

// ValidateNamespace checks a bridge namespace: absolute, and without a
// trailing '/' unless it is the root.
func ValidateNamespace(ns string) error {
	if ns == RootNamespace {
		return nil
	}
	if !strings.HasPrefix(ns, "/") || strings.HasSuffix(ns, "/") {
		return fmt.Errorf("%w: namespace %q", core.ErrInvalidKeyExpr, ns)
	}
	return Validate(ns[1:])
}
