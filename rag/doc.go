// Copyright 2025-2026 The ragcore Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package rag 提供检索增强生成（Retrieval-Augmented Generation）的核心管线。

该包覆盖管线的全部阶段：文档分块、向量索引、内容检索、查询路由与
证据合并，按「构建一次、查询多次」的纪律组织向量存储的生命周期。

# 核心接口/类型

  - Splitter — 确定性文档分块器（边界感知滑动窗口）
  - StoreBuilder / VectorStore — 两阶段向量存储（累积 → 冻结 → 只读查询）
  - Retriever — 封闭变体内容检索器（vector / web）
  - Router — 封闭变体查询路由器（fixed / classifier / gate / union）
  - Augmentor — 路由、并发检索、去重与证据注入
  - Embedder / WebSearchEngine / QueryLLMProvider — 外部协作者接口

# 主要能力

  - 文档分块：句子边界感知 + 可配置重叠（Splitter）
  - 向量检索：余弦相关度评分，插入序打破平分（VectorStore）
  - 查询路由：固定 / LLM 分类 / oui-non-peut-être 门控 / 并集（Router）
  - 证据合并：按检索器保序拼接、首现去重、token 预算（Augmentor）
  - 摄取管线：分块 → 批量嵌入 → 建库 → 冻结，多语料并行（Ingestor）

路由与检索失败一律降级为空结果并记录日志，不阻断本轮回答。
*/
package rag
