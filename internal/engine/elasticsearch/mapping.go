package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for product documents.
const DefaultIndexName = "products"

// buildIndexMapping returns the full JSON mapping for the products index,
// including the synonym and edge-ngram autocomplete analyzers, the nested
// attributes field, the dense embedding vector, and the completion field.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "synonym_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "product_synonyms"]
        },
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "autocomplete_filter"]
        }
      },
      "filter": {
        "autocomplete_filter": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 15
        },
        "product_synonyms": {
          "type": "synonym",
          "synonyms": [
            "laptop, notebook",
            "phone, mobile, cell phone",
            "tv, television",
            "headphones, earphones, earbuds"
          ]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "sku":          { "type": "keyword" },
      "name":         { "type": "text", "analyzer": "synonym_analyzer", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "standard" } } },
      "slug":         { "type": "keyword", "index": false },
      "description":  { "type": "text", "analyzer": "synonym_analyzer" },
      "category":     { "type": "keyword" },
      "status":       { "type": "keyword" },
      "price":        { "type": "float" },
      "stock_quantity": { "type": "integer" },
      "tags":         { "type": "keyword" },
      "attributes":   { "type": "nested", "properties": { "name": { "type": "keyword" }, "value": { "type": "keyword" } } },
      "location":     { "type": "geo_point" },
      "product_embedding": { "type": "dense_vector", "dims": 384, "index": true, "similarity": "cosine" },
      "name_suggest": { "type": "completion", "analyzer": "simple" },
      "created_at":   { "type": "date" },
      "updated_at":   { "type": "date" }
    }
  }
}`
}
