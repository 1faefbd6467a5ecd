// Copyright 2025-2026 The ragcore Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package llm 定义生成与嵌入两类外部协作者的统一接口，并提供
Gemini 的 HTTP 实现与请求/响应日志中间件。

# 核心接口/类型

  - Provider — 文本生成接口（Generate / Name）
  - EmbeddingProvider — 嵌入接口（Embed / EmbedAll）
  - LoggingProvider — 记录请求与响应的 Provider 包装器
  - GeminiProvider / GeminiEmbedding — Google Gemini 实现

检索核心只依赖接口；具体实现在装配时注入。
*/
package llm
