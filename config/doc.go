// Copyright 2025-2026 The ragcore Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package config 提供 ragcore 的统一配置加载。

配置优先级: 默认值 → YAML 文件 → 环境变量（仅 API 密钥）。
核心组件不读环境与文件——全部配置在装配时以不可变值注入，
只有本包执行 I/O。
*/
package config
